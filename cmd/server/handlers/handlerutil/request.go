package handlerutil

import (
	"errors"

	"github.com/ldelvillar/snap-notes-sub000/cmd/server/ctxkeys"
	"github.com/ldelvillar/snap-notes-sub000/cmd/server/handlers/httperr"
	"github.com/ldelvillar/snap-notes-sub000/internal/logger"
	"github.com/ldelvillar/snap-notes-sub000/internal/services/notes"
	util "github.com/ldelvillar/snap-notes-sub000/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// sanitizer is implemented by request bodies that clean themselves before validation.
type sanitizer interface {
	Sanitize()
}

// GetPrincipal returns the principal the JWT middleware resolved for this request.
func GetPrincipal(c *fiber.Ctx) (*notes.Principal, error) {
	email, ok := c.Locals(ctxkeys.UserEmailKey).(string)
	if !ok || email == "" {
		logger.L().Error("principal not found in context", "handler", "GetPrincipal", "path", c.Path())
		return nil, httperr.Fail(httperr.ErrNotAuthenticated)
	}
	return &notes.Principal{Email: email}, nil
}

func emailOf(c *fiber.Ctx) string {
	email, _ := c.Locals(ctxkeys.UserEmailKey).(string)
	return email
}

// ParseAndValidateBody parses, sanitizes and validates the request body
func ParseAndValidateBody(c *fiber.Ctx, req any, v *validator.Validate, handlerName string) error {
	if err := c.BodyParser(req); err != nil {
		logger.L().Warn("failed to parse request body", "handler", handlerName, "creator", emailOf(c), "error", err)
		return httperr.Fail(httperr.ErrBadRequest)
	}

	if s, ok := req.(sanitizer); ok {
		s.Sanitize()
	}

	if err := util.ValidateCtx(c.UserContext(), v, req); err != nil {
		logger.L().Warn("request validation failed", "handler", handlerName, "creator", emailOf(c), "error", err)
		return httperr.InvalidInput(err)
	}

	return nil
}

// NoteID extracts the note id path parameter. A missing id is reported as a
// missing note.
func NoteID(c *fiber.Ctx, handlerName string) (string, error) {
	id := c.Params("id")
	if id == "" {
		logger.L().Warn("missing note ID parameter", "handler", handlerName, "creator", emailOf(c), "path", c.Path())
		return "", httperr.Fail(httperr.ErrNoteNotFound)
	}
	return id, nil
}

// HandleServiceError maps note errors onto HTTP responses. Storage failures
// are logged with their cause and reported with a generic message.
func HandleServiceError(c *fiber.Ctx, err error, handlerName string, noteID string) error {
	logFields := []any{"handler", handlerName, "creator", emailOf(c), "error", err}
	if noteID != "" {
		logFields = append(logFields, "note_id", noteID)
	}

	switch {
	case errors.Is(err, notes.ErrNotAuthenticated):
		logger.L().Warn("operation without principal", logFields...)
		return httperr.Fail(httperr.ErrNotAuthenticated)
	case errors.Is(err, notes.ErrNotFound):
		c.Locals(ctxkeys.LogLevelKey, "info")
		logger.L().Info("note not found", logFields...)
		return httperr.Fail(httperr.ErrNoteNotFound)
	default:
		logger.L().Error("note operation failed", logFields...)
		return httperr.Fail(httperr.ErrInternal)
	}
}
