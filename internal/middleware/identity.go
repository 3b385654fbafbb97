package middleware

// identity.go holds helpers shared across middleware files.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID returns the authenticated operator id as a string, or
// "anon" when the request carries no valid token.
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case uint64:
		if v != 0 {
			return strconv.FormatUint(v, 10)
		}
	case string:
		if v != "" {
			return v
		}
	}
	return "anon"
}
