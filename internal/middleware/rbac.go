package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/brandwacht/internal/utils"
)

// RoleKey is the context key the role hint is stored under.
const RoleKey = "role"

// RequireRoleHint reads the ?role= hint, defaulting to agent, and rejects
// values outside roles. The hint only shapes the view; it is not an
// authorization decision.
func RequireRoleHint(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := c.QueryParam("role")
			if role == "" {
				role = utils.RoleAgent
			}
			for _, r := range roles {
				if role == r {
					c.Set(RoleKey, role)
					return next(c)
				}
			}
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
		}
	}
}
