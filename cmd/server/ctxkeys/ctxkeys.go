// Package ctxkeys names the fiber Locals shared between middlewares and handlers.
package ctxkeys

const (
	// UserEmailKey holds the verified principal email (string).
	UserEmailKey = "userEmail"
	// JWTTokenKey is where the JWT middleware leaves the parsed *jwt.Token.
	JWTTokenKey = "user"
	// ParentCtxKey carries the request context into a WebSocket handler.
	ParentCtxKey = "parentCtx"
	// LogLevelKey lets a handler downgrade how the request is logged.
	LogLevelKey = "log_level"
)
