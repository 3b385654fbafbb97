// Package handler defines the HTTP handlers of the API.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-seating/internal/query"
	"github.com/iliyamo/venue-seating/internal/seating"
)

// requestTimeout bounds the store work of a single request.
const requestTimeout = 5 * time.Second

// RequestValidator plugs go-playground/validator into echo so handlers can
// call c.Validate on bound DTOs.
type RequestValidator struct {
	v *validator.Validate
}

// NewRequestValidator returns a validator with required-struct checks on.
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i interface{}) error { return rv.v.Struct(i) }

// bindValid binds the JSON body into dst and validates it.  It returns a
// ready 400/422 response error when either step fails.
func bindValid(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			return echo.NewHTTPError(http.StatusUnprocessableEntity, echo.Map{"error": "validation failed", "fields": fields})
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}

// pageParam reads the 1-based ?page= query parameter.
func pageParam(c echo.Context) int {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// paginate slices one page out of all.  Pages past the end are empty.
func paginate[T any](all []T, page, perPage int) []T {
	start := (page - 1) * perPage
	if start > len(all) {
		start = len(all)
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// withTimeout derives the store context for a request.
func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// writeError maps seating and query errors to HTTP responses:
// not found -> 404, rule violations -> 422, everything else -> 500.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, seating.ErrNotFound), errors.Is(err, query.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": err.Error()})
	case errors.Is(err, seating.ErrAlreadyOccupied):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "already_occupied", "message": err.Error()})
	case errors.Is(err, seating.ErrInconsistent):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "inconsistent", "message": err.Error()})
	case errors.Is(err, seating.ErrInvalid):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid", "message": err.Error()})
	}
	c.Logger().Errorf("request failed: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "storage failure"})
}
