package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-seating/internal/config"
	"github.com/iliyamo/venue-seating/internal/model"
	"github.com/iliyamo/venue-seating/internal/repository"
)

const usersPerPage = 10

// UserHandler is the ADMIN-only operator management API.
type UserHandler struct {
	Cfg    config.Config
	Users  repository.Users
	Tokens repository.Tokens
}

// NewUserHandler builds the user management endpoints.
func NewUserHandler(cfg config.Config, u repository.Users, t repository.Tokens) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: u, Tokens: t}
}

type createUserReq struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN STAFF admin staff"`
}

// updateUserReq leaves role and is_active unchanged when omitted and the
// password unchanged when empty.
type updateUserReq struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN STAFF admin staff"`
	IsActive *bool  `json:"is_active"`
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
}

type userView struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type userPage struct {
	Data    []userView `json:"data"`
	Page    int        `json:"page"`
	PerPage int        `json:"per_page"`
	Total   int        `json:"total"`
}

func viewOf(u model.User) userView {
	return userView{ID: u.ID, Email: u.Email, Role: u.Role, IsActive: u.IsActive, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

// List returns operators ten per page, inactive ones included.
func (h *UserHandler) List(c echo.Context) error {
	page := pageParam(c)
	ctx, cancel := withTimeout(c)
	defer cancel()
	all, err := h.Users.List(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	views := make([]userView, 0, len(all))
	for _, u := range all {
		views = append(views, viewOf(u))
	}
	return c.JSON(http.StatusOK, userPage{Data: paginate(views, page, usersPerPage), Page: page, PerPage: usersPerPage, Total: len(all)})
}

// Get returns one operator.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(*u))
}

// Create adds an operator.  Role defaults to STAFF.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	role := model.RoleStaff
	if req.Role != "" {
		role = strings.ToUpper(req.Role)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	id, err := h.Users.Create(ctx, req.Email, req.Password, role, h.Cfg.BcryptCost)
	if err != nil {
		return h.fail(c, err)
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, viewOf(*u))
}

// Update edits email, role, active flag and optionally the password.
// Deactivating an operator or changing its password revokes its refresh
// tokens.  An admin cannot demote or deactivate itself.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateUserReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	cur, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	in := repository.UserUpdate{Email: req.Email, Role: cur.Role, IsActive: cur.IsActive, Password: req.Password}
	if req.Role != "" {
		in.Role = strings.ToUpper(req.Role)
	}
	if req.IsActive != nil {
		in.IsActive = *req.IsActive
	}
	if id == actorID(c) && (in.Role != model.RoleAdmin || !in.IsActive) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid", "message": "cannot demote or deactivate your own account"})
	}
	if err := h.Users.Update(ctx, id, in, h.Cfg.BcryptCost); err != nil {
		return h.fail(c, err)
	}
	if (cur.IsActive && !in.IsActive) || in.Password != "" {
		if err := h.Tokens.RevokeAllForUser(ctx, id); err != nil {
			return h.fail(c, err)
		}
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(*u))
}

// Delete removes an operator and its refresh tokens.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if id == actorID(c) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid", "message": "cannot delete your own account"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Users.Delete(ctx, id); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHandler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "user not found"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	}
	c.Logger().Errorf("user request failed: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "storage failure"})
}

// actorID is the operator id JWTAuth stored on the context, 0 if none.
func actorID(c echo.Context) uint64 {
	uid, _ := c.Get("user_id").(uint64)
	return uid
}
