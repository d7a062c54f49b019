package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-marketplace/internal/middleware"
	"github.com/iliyamo/tour-marketplace/internal/model"
)

// ApproveUser handles POST /v1/admin/users/:id/approve.
func (h *Handler) ApproveUser(c echo.Context) error { return h.userAction(c, h.engine.ApproveUser) }

// RejectUser handles POST /v1/admin/users/:id/reject.
func (h *Handler) RejectUser(c echo.Context) error { return h.userAction(c, h.engine.RejectUser) }

// SuspendUser handles POST /v1/admin/users/:id/suspend.
func (h *Handler) SuspendUser(c echo.Context) error { return h.userAction(c, h.engine.SuspendUser) }

// ReinstateUser handles POST /v1/admin/users/:id/reinstate.
func (h *Handler) ReinstateUser(c echo.Context) error {
	return h.userAction(c, h.engine.ReinstateUser)
}

func (h *Handler) userAction(c echo.Context, fn func(ctx context.Context, actorID, userID string) (model.User, error)) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := fn(ctx, middleware.UserID(c), c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
