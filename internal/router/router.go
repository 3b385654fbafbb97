// Package router registers the API routes on an echo instance.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-seating/internal/handler"
	"github.com/iliyamo/venue-seating/internal/middleware"
	"github.com/iliyamo/venue-seating/internal/model"
)

// RegisterRoutes registers the unauthenticated operational endpoints:
// liveness, readiness and, when metrics is non-nil, the Prometheus scrape
// endpoint.
func RegisterRoutes(e *echo.Echo, ready echo.HandlerFunc, metrics http.Handler) {
	e.GET("/healthz", handler.Health)
	if ready != nil {
		e.GET("/readyz", ready)
	}
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// RegisterAuth registers the authentication routes.  Register, login,
// refresh and logout live under /v1/auth and need no session; /v1/me
// requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh) // rotates the refresh token
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin, model.RoleStaff))
	auth.GET("/me", a.Me)
}

// RegisterUsers registers operator management under /v1/users.  Every
// route requires an ADMIN token.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, jwtSecret string) {
	g := e.Group("/v1/users", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))
	g.GET("", u.List)
	g.POST("", u.Create)
	g.GET("/:id", u.Get)
	g.PUT("/:id", u.Update)
	g.DELETE("/:id", u.Delete)
}
