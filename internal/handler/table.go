package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-seating/internal/model"
	"github.com/iliyamo/venue-seating/internal/query"
	"github.com/iliyamo/venue-seating/internal/seating"
)

// TableHandler serves tables and the chairs and assignments under them.
type TableHandler struct {
	Engine *seating.Engine
	Query  *query.Service
}

// NewTableHandler wires the engine for writes and the query service for reads.
func NewTableHandler(e *seating.Engine, q *query.Service) *TableHandler {
	return &TableHandler{Engine: e, Query: q}
}

type createTableReq struct {
	ChairQuantity int  `json:"chair_quantity" validate:"required,min=1,max=11"`
	Reserved      bool `json:"reserved"`
}

type updateTableReq struct {
	ChairQuantity *int               `json:"chair_quantity" validate:"omitempty,min=1,max=11"`
	Status        *model.TableStatus `json:"status" validate:"omitempty,max=2"`
}

type tableResp struct {
	model.Table
	Chairs []model.Chair `json:"chairs"`
}

// List returns every table with its derived status.
func (h *TableHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	tables, err := h.Query.ListTables(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, tables)
}

// Get returns one table together with its chairs.
func (h *TableHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	view, err := h.Query.GetTable(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// Create adds a table numbered after the current highest one together
// with its chairs.
func (h *TableHandler) Create(c echo.Context) error {
	var req createTableReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	t, chairs, err := h.Engine.CreateTable(ctx, req.ChairQuantity, req.Reserved)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, tableResp{Table: *t, Chairs: chairs})
}

// Update edits chair_quantity and/or status.  Status 2 reserves the
// table; 0 or 1 lifts a reservation and recomputes from assignments.
func (h *TableHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateTableReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	t, err := h.Engine.UpdateTable(ctx, id, seating.TableUpdate{ChairQuantity: req.ChairQuantity, Status: req.Status})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// Reserve marks the whole table reserved.
func (h *TableHandler) Reserve(c echo.Context) error {
	return h.setReserved(c, true)
}

// Unreserve lifts a reservation.
func (h *TableHandler) Unreserve(c echo.Context) error {
	return h.setReserved(c, false)
}

func (h *TableHandler) setReserved(c echo.Context, reserved bool) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if reserved {
		err = h.Engine.ReserveTable(ctx, id)
	} else {
		err = h.Engine.UnreserveTable(ctx, id)
	}
	if err != nil {
		return writeError(c, err)
	}
	view, err := h.Query.GetTable(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// Delete removes the table, its chairs and the assignments on them.
func (h *TableHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Engine.DeleteTable(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Chairs lists the chairs of a table by number.  Unknown tables yield [].
func (h *TableHandler) Chairs(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	chairs, err := h.Query.ChairsByTable(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, chairs)
}

// Assignments lists the assignments of a table by chair number.
func (h *TableHandler) Assignments(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	out, err := h.Query.AssignmentsByTable(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
