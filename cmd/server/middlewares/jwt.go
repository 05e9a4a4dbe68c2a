package middlewares

import (
	"github.com/ldelvillar/snap-notes-sub000/cmd/server/ctxkeys"
	"github.com/ldelvillar/snap-notes-sub000/cmd/server/handlers/httperr"
	"github.com/ldelvillar/snap-notes-sub000/internal/logger"
	"github.com/ldelvillar/snap-notes-sub000/internal/services/auth"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JWT returns a configured Fiber middleware that:
//
//   - validates the Bearer token signature using secret (HS256 only)
//   - makes sure the token carries an "email" claim
//   - stores it in ctx.Locals(ctxkeys.UserEmailKey) so downstream handlers
//     can build the principal from it.
//
// On any problem it bubbles up a 401 via the global httperr handler.
func JWT(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(secret)},
		ContextKey: ctxkeys.JWTTokenKey,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, _ := c.Locals(ctxkeys.JWTTokenKey).(*jwt.Token)
			p, err := auth.PrincipalFromToken(token)
			if err != nil {
				logger.L().Warn("rejected bearer token", "path", c.Path(), "error", err)
				return httperr.Fail(httperr.ErrUnauthorized)
			}

			c.Locals(ctxkeys.UserEmailKey, p.Email)
			return c.Next()
		},

		// Override the default "unauthorized" JSON to match the project style
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			logger.L().Debug("bearer token verification failed", "path", c.Path(), "error", err)
			return httperr.Fail(httperr.ErrUnauthorized)
		},
	})
}
