package middleware

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/bcrypt"
)

// DashboardGuard protects the dashboard with HTTP basic auth against a bcrypt
// hash. With an empty hash every request is refused.
func DashboardGuard(user, passwordHash string) echo.MiddlewareFunc {
	hash := []byte(passwordHash)
	return echomw.BasicAuthWithConfig(echomw.BasicAuthConfig{
		Realm: "brandwacht dashboard",
		Validator: func(u, p string, c echo.Context) (bool, error) {
			if len(hash) == 0 {
				return false, nil
			}
			userOK := subtle.ConstantTimeCompare([]byte(u), []byte(user)) == 1
			passOK := bcrypt.CompareHashAndPassword(hash, []byte(p)) == nil
			return userOK && passOK, nil
		},
	})
}
