package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// RequireAPIKey guards the identity-resolution endpoint, which only the
// trusted frontend bridge may call. The configuration carries a bcrypt
// hash of the bridge key, never the key itself, and the request presents
// the plain key in the X-Api-Key header.
func RequireAPIKey(keyHash string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get("X-Api-Key")
			if key == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing api key"})
			}
			if bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid api key"})
			}
			return next(c)
		}
	}
}
