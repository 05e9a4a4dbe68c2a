package handlerutil

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ldelvillar/snap-notes-sub000/cmd/server/ctxkeys"
	"github.com/ldelvillar/snap-notes-sub000/cmd/server/handlers/httperr"
	"github.com/ldelvillar/snap-notes-sub000/internal/services/notes"
	util "github.com/ldelvillar/snap-notes-sub000/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(email string, h fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: httperr.Handler})
	app.Use(func(c *fiber.Ctx) error {
		if email != "" {
			c.Locals(ctxkeys.UserEmailKey, email)
		}
		return c.Next()
	})
	app.Post("/notes/:id?", h)
	return app
}

func post(t *testing.T, app *fiber.App, path, body string) int {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestGetPrincipal(t *testing.T) {
	var got *notes.Principal
	h := func(c *fiber.Ctx) error {
		p, err := GetPrincipal(c)
		if err != nil {
			return err
		}
		got = p
		return c.SendStatus(204)
	}

	assert.Equal(t, 204, post(t, newApp("u1@example.com", h), "/notes", ""))
	require.NotNil(t, got)
	assert.Equal(t, "u1@example.com", got.Email)

	assert.Equal(t, 401, post(t, newApp("", h), "/notes", ""))
}

func TestParseAndValidateBody(t *testing.T) {
	v := util.NewValidator()
	var got notes.CreateNoteRequest
	h := func(c *fiber.Ctx) error {
		var req notes.CreateNoteRequest
		if err := ParseAndValidateBody(c, &req, v, "Create"); err != nil {
			return err
		}
		got = req
		return c.SendStatus(204)
	}
	app := newApp("u1@example.com", h)

	assert.Equal(t, 204, post(t, app, "/notes", `{"title":"<b>Hi</b>","text":"<p>hello</p>"}`))
	assert.Equal(t, "Hi", got.Title)
	assert.Equal(t, "hello", got.Text)

	assert.Equal(t, 400, post(t, app, "/notes", `{"title":"x"`))
	assert.Equal(t, 400, post(t, app, "/notes", `{"title":"x","text":""}`))
	// markup only: empty after sanitizing
	assert.Equal(t, 400, post(t, app, "/notes", `{"text":"<script>alert(1)</script>"}`))
	assert.Equal(t, 400, post(t, app, "/notes", `{"text":"`+strings.Repeat("a", 10001)+`"}`))
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not authenticated", notes.ErrNotAuthenticated, 401},
		{"not found", notes.ErrNotFound, 404},
		{"storage", &notes.StorageError{Op: "list", Err: errors.New("timeout")}, 500},
		{"unknown", errors.New("boom"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp("u1@example.com", func(c *fiber.Ctx) error {
				return HandleServiceError(c, tt.err, "Test", "n1")
			})
			assert.Equal(t, tt.want, post(t, app, "/notes/n1", ""))
		})
	}
}

func TestNoteID(t *testing.T) {
	h := func(c *fiber.Ctx) error {
		if _, err := NoteID(c, "Test"); err != nil {
			return err
		}
		return c.SendStatus(204)
	}
	app := newApp("u1@example.com", h)

	assert.Equal(t, 204, post(t, app, "/notes/abc", ""))
	assert.Equal(t, 404, post(t, app, "/notes", ""))
}
