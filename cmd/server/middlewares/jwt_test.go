package middlewares

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ldelvillar/snap-notes-sub000/cmd/server/ctxkeys"
	"github.com/ldelvillar/snap-notes-sub000/cmd/server/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupJWTApp(t *testing.T) *fiber.App {
	t.Helper()
	app := testutil.CreateTestApp(t)
	app.Get("/protected", JWT(testutil.TestSecret), func(c *fiber.Ctx) error {
		email, _ := c.Locals(ctxkeys.UserEmailKey).(string)
		return c.SendString(email)
	})
	return app
}

func TestJWT(t *testing.T) {
	valid := testutil.MustTestJWT(t, " Someone@Example.COM ")
	wrongKey, err := testutil.CreateTestJWT("u1@example.com", []byte("some-other-secret-with-enough-length!"), time.Hour)
	require.NoError(t, err)
	expired, err := testutil.CreateTestJWT("u1@example.com", []byte(testutil.TestSecret), -time.Minute)
	require.NoError(t, err)
	noEmail, err := testutil.CreateTestJWT("", []byte(testutil.TestSecret), time.Hour)
	require.NoError(t, err)
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "u1@example.com"}).
		SignedString([]byte(testutil.TestSecret))
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token stores normalized email", "Bearer " + valid, fiber.StatusOK, "someone@example.com"},
		{"missing header", "", fiber.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"not a bearer scheme", "Basic " + valid, fiber.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"garbage token", "Bearer not-a-jwt", fiber.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"wrong signing key", "Bearer " + wrongKey, fiber.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"expired", "Bearer " + expired, fiber.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"missing email claim", "Bearer " + noEmail, fiber.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"missing exp claim", "Bearer " + noExp, fiber.StatusUnauthorized, `{"error":"Unauthorized"}`},
	}

	app := setupJWTApp(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantBody, string(body))
		})
	}
}
