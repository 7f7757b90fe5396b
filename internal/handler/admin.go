package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
)

// AdminHandler exposes the admin-only management endpoints.  All routes
// sit behind Authenticate plus RequireRole("admin").
type AdminHandler struct {
	Sessions *auth.Service
	Users    auth.UserStore
	Logs     *repository.ActivityRepo
}

func NewAdminHandler(sessions *auth.Service, users auth.UserStore, logs *repository.ActivityRepo) *AdminHandler {
	return &AdminHandler{Sessions: sessions, Users: users, Logs: logs}
}

type roleReq struct {
	Role string `json:"role"`
}

type logItem struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	Action    string    `json:"action"`
	Success   bool      `json:"success"`
	Detail    string    `json:"detail,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type userItem struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	External  bool      `json:"external"`
	CreatedAt time.Time `json:"created_at"`
}

// ListUsers returns a page of users.  Query params: page (1-based),
// size (capped at 100).
func (h *AdminHandler) ListUsers(c echo.Context) error {
	offset, limit := pagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx, offset, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	items := make([]userItem, 0, len(users))
	for _, u := range users {
		items = append(items, userItem{
			ID:        u.ID,
			Email:     u.Email,
			Name:      u.Name,
			Role:      u.Role,
			External:  u.ExternalID != nil,
			CreatedAt: u.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"users": items})
}

// ChangeRole elevates or demotes a user.  Unknown role values are
// normalized to user by the service.
func (h *AdminHandler) ChangeRole(c echo.Context) error {
	targetID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || targetID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req roleReq
	if err := c.Bind(&req); err != nil || req.Role == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role required"})
	}
	actor := middleware.CurrentUser(c)
	if actor == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": auth.ErrUnauthenticated.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.ChangeRole(ctx, actor.ID, targetID, req.Role, requestMeta(c)); err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, auth.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": auth.ErrNotFound.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "role change failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"role": model.NormalizeRole(req.Role)})
}

// DeleteUser removes an account.  Refresh records cascade with it.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	targetID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || targetID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	actor := middleware.CurrentUser(c)
	if actor == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": auth.ErrUnauthenticated.Error()})
	}
	if actor.ID == targetID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot delete own account"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.DeleteUser(ctx, actor.ID, targetID, requestMeta(c)); err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, auth.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": auth.ErrNotFound.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListLogs returns a page of activity log entries, newest first.
// Optional query param user_id filters to one user.
func (h *AdminHandler) ListLogs(c echo.Context) error {
	offset, limit := pagination(c)
	var userID uint64
	if s := c.QueryParam("user_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
		}
		userID = id
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Logs.List(ctx, userID, offset, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	items := make([]logItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, logItem{
			ID:        e.ID,
			UserID:    e.UserID,
			Action:    e.Action,
			Success:   e.Success,
			Detail:    e.Detail,
			IP:        e.IP,
			UserAgent: e.UserAgent,
			CreatedAt: e.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"logs": items})
}

// pagination parses page/size query params into an offset/limit pair.
func pagination(c echo.Context) (offset, limit int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.QueryParam("size"))
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return (page - 1) * size, size
}
