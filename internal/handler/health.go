package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is a liveness probe for load balancers and monitoring.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// Ready reports whether the store answers.  ping is nil with the memory
// store.
func Ready(ping func(c echo.Context) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		if ping != nil {
			if err := ping(c); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
			}
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	}
}
