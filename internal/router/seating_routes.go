package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-seating/internal/handler"
	"github.com/iliyamo/venue-seating/internal/middleware"
	"github.com/iliyamo/venue-seating/internal/model"
)

// Seating groups the handlers and middleware of the seating API.
type Seating struct {
	Tables      *handler.TableHandler
	Assignments *handler.AssignmentHandler
	Clients     *handler.ClientHandler
	JWTSecret   string
	// Cache and Invalidate wrap reads and writes respectively; nil skips them.
	Cache      echo.MiddlewareFunc
	Invalidate echo.MiddlewareFunc
}

// RegisterSeating registers the seating endpoints under /v1.  Every route
// requires an operator token.  Staff seat and release clients; creating,
// editing and deleting tables is reserved to admins.
func RegisterSeating(e *echo.Echo, s Seating) {
	mws := []echo.MiddlewareFunc{
		middleware.JWTAuth(s.JWTSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleStaff),
	}
	if s.Invalidate != nil {
		mws = append(mws, s.Invalidate)
	}
	if s.Cache != nil {
		mws = append(mws, s.Cache)
	}
	g := e.Group("/v1", mws...)
	admin := middleware.RequireRole(model.RoleAdmin)

	t := s.Tables
	g.GET("/tables", t.List)
	g.GET("/tables/:id", t.Get)
	g.POST("/tables", t.Create, admin)
	g.PUT("/tables/:id", t.Update, admin)
	g.DELETE("/tables/:id", t.Delete, admin)
	g.POST("/tables/:id/reserve", t.Reserve)
	g.DELETE("/tables/:id/reserve", t.Unreserve)
	g.GET("/tables/:id/chairs", t.Chairs)
	g.GET("/tables/:id/assignments", t.Assignments)

	a := s.Assignments
	g.GET("/assignments", a.List)
	g.GET("/assignments/:id", a.Get)
	g.POST("/assignments", a.Create)
	g.PUT("/assignments/:id", a.Update)
	g.DELETE("/assignments/:id", a.Delete)
	g.GET("/chairs/:id/assignments", a.ByChair)

	c := s.Clients
	g.GET("/clients", c.List)
	g.GET("/clients/:id", c.Get)
	g.POST("/clients", c.Create)
	g.PUT("/clients/:id", c.Update)
	g.DELETE("/clients/:id", c.Delete)
}
