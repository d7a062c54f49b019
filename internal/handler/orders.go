package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-marketplace/internal/middleware"
	"github.com/iliyamo/tour-marketplace/internal/model"
)

type orderList struct {
	Items []model.Order `json:"items"`
}

// GetOrder handles GET /v1/orders/:id.
func (h *Handler) GetOrder(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.engine.GetOrder(ctx, middleware.UserID(c), c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// ListOrders serves both GET /v1/my-orders and GET /v1/merchant/orders.
// The engine scopes the listing to the caller's role; ?status= filters.
func (h *Handler) ListOrders(c echo.Context) error {
	status := model.OrderStatus(c.QueryParam("status"))
	switch status {
	case "", model.OrderPending, model.OrderConfirmed, model.OrderRejected, model.OrderCancelled, model.OrderCompleted:
	default:
		return h.writeError(c, model.NewValidationError("status", "unknown order status"))
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	orders, err := h.engine.ListOrders(ctx, middleware.UserID(c), status)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, orderList{Items: orders})
}

// CancelOrder handles POST /v1/orders/:id/cancel.
func (h *Handler) CancelOrder(c echo.Context) error {
	return h.orderAction(c, h.engine.CancelOrder)
}

// ConfirmOrder handles POST /v1/orders/:id/confirm.
func (h *Handler) ConfirmOrder(c echo.Context) error {
	return h.orderAction(c, h.engine.ConfirmOrder)
}

// RejectOrder handles POST /v1/orders/:id/reject.
func (h *Handler) RejectOrder(c echo.Context) error {
	return h.orderAction(c, h.engine.RejectOrder)
}

func (h *Handler) orderAction(c echo.Context, fn func(ctx context.Context, actorID, orderID string) (model.Order, error)) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := fn(ctx, middleware.UserID(c), c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}
