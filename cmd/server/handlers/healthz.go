package handlers

import (
	"context"
	"time"

	"github.com/ldelvillar/snap-notes-sub000/internal/logger"
	"github.com/ldelvillar/snap-notes-sub000/internal/services/notes"

	"github.com/gofiber/fiber/v2"
)

const HealthzTimeout = 5 * time.Second

// Healthz returns a handler reporting whether the note store answers a ping.
// @Summary Health check
// @Description Check if the server and its note store are healthy
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func Healthz(store notes.Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if store == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "down",
				"error":  "store not initialized",
			})
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), HealthzTimeout)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			logger.L().Warn("health check failed", "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "down",
				"error":  "store unreachable",
			})
		}

		return c.JSON(fiber.Map{
			"status": "ok",
		})
	}
}
