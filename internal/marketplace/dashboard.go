package marketplace

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/brandwacht/internal/utils"
)

// Dashboard handles GET /dashboard/requests/:id.
func (h *Handler) Dashboard(c echo.Context) error {
	req, err := h.intake.Lookup(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	role, _ := c.Get("role").(string)
	if role == "" {
		role = utils.RoleAgent
	}
	return c.JSON(http.StatusOK, echo.Map{
		"request": req,
		"role":    role,
	})
}

// DashboardLive handles GET /dashboard/requests/:id/live.
func (h *Handler) DashboardLive(c echo.Context) error {
	if h.feed == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "live view disabled"})
	}
	req, err := h.intake.Lookup(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return h.feed.Serve(c, *req)
}
