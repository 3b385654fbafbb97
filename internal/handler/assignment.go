package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-seating/internal/query"
	"github.com/iliyamo/venue-seating/internal/seating"
)

// AssignmentHandler seats, moves and releases clients.
type AssignmentHandler struct {
	Engine *seating.Engine
	Query  *query.Service
}

// NewAssignmentHandler wires the engine for writes and the query service for reads.
func NewAssignmentHandler(e *seating.Engine, q *query.Service) *AssignmentHandler {
	return &AssignmentHandler{Engine: e, Query: q}
}

type assignReq struct {
	ClientID uint64 `json:"id_client" validate:"required"`
	ChairID  uint64 `json:"id_chair" validate:"required"`
	TableID  uint64 `json:"id_table" validate:"required"`
}

type moveReq struct {
	ChairID uint64 `json:"id_chair" validate:"required"`
	TableID uint64 `json:"id_table" validate:"required"`
}

// List returns every assignment.
func (h *AssignmentHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	out, err := h.Query.ListAssignments(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one assignment.
func (h *AssignmentHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	a, err := h.Query.GetAssignment(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Create seats a client on a chair of the given table.
func (h *AssignmentHandler) Create(c echo.Context) error {
	var req assignReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	a, err := h.Engine.Assign(ctx, req.ClientID, req.ChairID, req.TableID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

// Update moves the assignment's client to another chair.  The response is
// the replacement assignment.
func (h *AssignmentHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req moveReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	a, err := h.Engine.Reassign(ctx, id, req.ChairID, req.TableID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Delete frees the chair held by the assignment.
func (h *AssignmentHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Engine.Release(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ByChair lists the assignment on a chair, [] when the chair is free or
// unknown.
func (h *AssignmentHandler) ByChair(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	out, err := h.Query.AssignmentsByChair(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
