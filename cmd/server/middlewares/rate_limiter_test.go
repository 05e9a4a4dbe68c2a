package middlewares

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ldelvillar/snap-notes-sub000/cmd/server/ctxkeys"
	"github.com/ldelvillar/snap-notes-sub000/cmd/server/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusOf(t *testing.T, app *fiber.App, method, path, who string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if who != "" {
		req.Header.Set("X-Test-User", who)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestBuildRateLimiter(t *testing.T) {
	t.Run("disabled when max is zero", func(t *testing.T) {
		app := testutil.CreateTestApp(t)
		app.Get("/", BuildRateLimiter(0, time.Minute), func(c *fiber.Ctx) error { return c.SendStatus(200) })

		for range 5 {
			assert.Equal(t, 200, statusOf(t, app, fiber.MethodGet, "/", ""))
		}
	})

	t.Run("limits per principal", func(t *testing.T) {
		app := testutil.CreateTestApp(t)
		app.Use(func(c *fiber.Ctx) error {
			if who := c.Get("X-Test-User"); who != "" {
				c.Locals(ctxkeys.UserEmailKey, who)
			}
			return c.Next()
		})
		app.Post("/", BuildRateLimiter(2, time.Minute), func(c *fiber.Ctx) error { return c.SendStatus(200) })

		assert.Equal(t, 200, statusOf(t, app, fiber.MethodPost, "/", "a@example.com"))
		assert.Equal(t, 200, statusOf(t, app, fiber.MethodPost, "/", "a@example.com"))
		assert.Equal(t, 429, statusOf(t, app, fiber.MethodPost, "/", "a@example.com"))
		assert.Equal(t, 200, statusOf(t, app, fiber.MethodPost, "/", "b@example.com"))
	})

	t.Run("skip prefixes bypass the limiter", func(t *testing.T) {
		app := testutil.CreateTestApp(t)
		app.Use(BuildRateLimiter(1, time.Minute, "/free"))
		app.Get("/free", func(c *fiber.Ctx) error { return c.SendStatus(200) })
		app.Get("/paid", func(c *fiber.Ctx) error { return c.SendStatus(200) })

		for range 3 {
			assert.Equal(t, 200, statusOf(t, app, fiber.MethodGet, "/free", ""))
		}
		assert.Equal(t, 200, statusOf(t, app, fiber.MethodGet, "/paid", ""))
		assert.Equal(t, 429, statusOf(t, app, fiber.MethodGet, "/paid", ""))
	})
}

func TestMutationsOnly(t *testing.T) {
	app := testutil.CreateTestApp(t)
	app.Use(MutationsOnly(BuildRateLimiter(1, time.Minute)))
	ok := func(c *fiber.Ctx) error { return c.SendStatus(200) }
	app.Get("/", ok)
	app.Post("/", ok)

	for range 3 {
		assert.Equal(t, 200, statusOf(t, app, fiber.MethodGet, "/", ""))
	}
	assert.Equal(t, 200, statusOf(t, app, fiber.MethodPost, "/", ""))
	assert.Equal(t, 429, statusOf(t, app, fiber.MethodPost, "/", ""))
}
