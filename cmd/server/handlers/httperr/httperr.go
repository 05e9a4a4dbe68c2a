package httperr

import (
	"errors"
	"log/slog"

	"github.com/ldelvillar/snap-notes-sub000/cmd/server/ctxkeys"
	"github.com/ldelvillar/snap-notes-sub000/internal/logger"

	"github.com/gofiber/fiber/v2"
)

// GenericMessage is the only thing users see when the note store fails.
const GenericMessage = "Something went wrong, please try again"

// E represents an HTTP error with status code and message
type E struct {
	Status  int    `json:"-" example:"400"`
	Message string `json:"error" example:"Bad Request"`
}

// Error implements the error interface
func (e E) Error() string {
	return e.Message
}

// JSON returns the error as JSON response
func (e E) JSON(c *fiber.Ctx) error {
	return c.Status(e.Status).JSON(e)
}

// Fail returns the error for Fiber's global error handler to process
func Fail(err E) error {
	return err
}

// InvalidInput wraps a validation error and returns the standard response.
func InvalidInput(err error) error {
	return Fail(E{
		Status:  fiber.StatusBadRequest,
		Message: "Invalid input: " + err.Error(),
	})
}

// Pre-defined HTTP errors
var (
	ErrBadRequest       = E{Status: fiber.StatusBadRequest, Message: "Bad Request"}
	ErrUnauthorized     = E{Status: fiber.StatusUnauthorized, Message: "Unauthorized"}
	ErrNotAuthenticated = E{Status: fiber.StatusUnauthorized, Message: "User not authenticated"}
	ErrNoteNotFound     = E{Status: fiber.StatusNotFound, Message: "Note not found"}
	ErrTooManyRequests  = E{Status: fiber.StatusTooManyRequests, Message: "Too Many Requests"}
	ErrInternal         = E{Status: fiber.StatusInternalServerError, Message: GenericMessage}
)

// Handler is the global error handler for Fiber
func Handler(c *fiber.Ctx, err error) error {
	var e E
	if errors.As(err, &e) {
		logResponse(c, e.Status, err)
		return e.JSON(c)
	}

	var fiberError *fiber.Error
	if errors.As(err, &fiberError) {
		logResponse(c, fiberError.Code, err)
		return c.Status(fiberError.Code).JSON(E{
			Status:  fiberError.Code,
			Message: fiberError.Message,
		})
	}

	logResponse(c, ErrInternal.Status, err)
	return ErrInternal.JSON(c)
}

// logResponse records error responses. Server errors log at error level,
// client errors at debug unless a handler raised them via ctxkeys.LogLevelKey.
func logResponse(c *fiber.Ctx, status int, err error) {
	level := slog.LevelDebug
	if status >= fiber.StatusInternalServerError {
		level = slog.LevelError
	} else if raised, ok := c.Locals(ctxkeys.LogLevelKey).(string); ok {
		level = logger.ParseLevel(raised)
	}
	logger.L().Log(c.UserContext(), level, "request failed",
		"method", c.Method(), "path", c.Path(), "status", status, "error", err)
}
