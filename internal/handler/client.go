package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-seating/internal/model"
	"github.com/iliyamo/venue-seating/internal/query"
	"github.com/iliyamo/venue-seating/internal/seating"
)

const clientsPerPage = 10

// ClientHandler manages the guest register.
type ClientHandler struct {
	Engine *seating.Engine
	Query  *query.Service
}

// NewClientHandler wires the engine for writes and the query service for reads.
func NewClientHandler(e *seating.Engine, q *query.Service) *ClientHandler {
	return &ClientHandler{Engine: e, Query: q}
}

type clientPage struct {
	Data    []model.Client `json:"data"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	Total   int            `json:"total"`
}

// List returns clients ten per page.  ?q= filters by name or CI and
// ?page= selects the page (1-based).
func (h *ClientHandler) List(c echo.Context) error {
	page := pageParam(c)
	ctx, cancel := withTimeout(c)
	defer cancel()
	all, err := h.Query.SearchClients(ctx, c.QueryParam("q"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, clientPage{Data: paginate(all, page, clientsPerPage), Page: page, PerPage: clientsPerPage, Total: len(all)})
}

// Get returns one client.
func (h *ClientHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	cl, err := h.Query.GetClient(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

// Create registers a guest.  CI must be unique.
func (h *ClientHandler) Create(c echo.Context) error {
	var req seating.ClientInput
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	cl, err := h.Engine.CreateClient(ctx, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, cl)
}

// Update replaces name, CI and phone of a guest.
func (h *ClientHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req seating.ClientInput
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	cl, err := h.Engine.UpdateClient(ctx, id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

// Delete removes a client and frees any chair the client held.
func (h *ClientHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Engine.DeleteClient(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
