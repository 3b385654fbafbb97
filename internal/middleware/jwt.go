// Package middleware holds the echo middleware shared by the API routes.
package middleware

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/venue-seating/internal/seating"
	"github.com/iliyamo/venue-seating/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the operator id and role into the request.  Handlers read them via
// `c.Get("user_id")` (uint64) and `c.Get("role")` (string); the request
// context additionally carries a seating.Actor so engine calls are
// attributed to the operator.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			uid, _ := claims.UserID() // validated by ParseAccessToken

			c.Set("user_id", uid)
			c.Set("role", claims.Role)
			r := c.Request()
			c.SetRequest(r.WithContext(seating.WithActor(r.Context(), seating.Actor{UserID: uid, Role: claims.Role})))
			return next(c)
		}
	}
}
