package handlers

import (
	"github.com/ldelvillar/snap-notes-sub000/cmd/server/handlers/handlerutil"

	"github.com/gofiber/fiber/v2"
)

// Me returns the principal the bearer token resolves to.
// @Summary Get current principal
// @Description Get the principal notes are scoped to
// @Tags auth
// @Accept json
// @Produce json
// @Security Bearer
// @Success 200 {object} notes.Principal
// @Failure 401 {object} httperr.E
// @Router /me [get]
func Me(c *fiber.Ctx) error {
	p, err := handlerutil.GetPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(p)
}
