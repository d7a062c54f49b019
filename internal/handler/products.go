package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/tour-marketplace/internal/middleware"
	"github.com/iliyamo/tour-marketplace/internal/model"
	"github.com/iliyamo/tour-marketplace/internal/service"
)

// defaultCalendarWindow is how many days GET .../schedules returns when no
// range is given.
const defaultCalendarWindow = 30

type productReq struct {
	Title       model.LocalizedText `json:"title"`
	Description model.LocalizedText `json:"description"`
	BasePrice   decimal.Decimal     `json:"base_price"`
}

func (r productReq) input() service.ProductInput {
	return service.ProductInput{Title: r.Title, Description: r.Description, BasePrice: r.BasePrice}
}

type scheduleItem struct {
	Date  string          `json:"date" validate:"required"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock" validate:"gte=0"`
}

type schedulesReq struct {
	Schedules []scheduleItem `json:"schedules" validate:"required,min=1,dive"`
}

type rejectReq struct {
	Reason string `json:"reason" validate:"required"`
}

type productList struct {
	Items []model.Product `json:"items"`
}

type scheduleList struct {
	ProductID string                `json:"product_id"`
	Items     []model.PriceSchedule `json:"items"`
}

// CreateProduct handles POST /v1/products.
func (h *Handler) CreateProduct(c echo.Context) error {
	var req productReq
	if err := h.bind(c, &req); err != nil {
		return h.writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.engine.CreateProduct(ctx, middleware.UserID(c), req.input())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// EditProduct handles PUT /v1/products/:id.
func (h *Handler) EditProduct(c echo.Context) error {
	var req productReq
	if err := h.bind(c, &req); err != nil {
		return h.writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.engine.EditProduct(ctx, middleware.UserID(c), c.Param("id"), req.input())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// SubmitProduct handles POST /v1/products/:id/submit.
func (h *Handler) SubmitProduct(c echo.Context) error {
	return h.productAction(c, h.engine.SubmitProduct)
}

// ApproveProduct handles POST /v1/admin/products/:id/approve.
func (h *Handler) ApproveProduct(c echo.Context) error {
	return h.productAction(c, h.engine.ApproveProduct)
}

// RejectProduct handles POST /v1/admin/products/:id/reject.
func (h *Handler) RejectProduct(c echo.Context) error {
	var req rejectReq
	if err := h.bind(c, &req); err != nil {
		return h.writeError(c, err)
	}
	return h.productAction(c, func(ctx context.Context, actorID, productID string) (model.Product, error) {
		return h.engine.RejectProduct(ctx, actorID, productID, req.Reason)
	})
}

func (h *Handler) productAction(c echo.Context, fn func(ctx context.Context, actorID, productID string) (model.Product, error)) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := fn(ctx, middleware.UserID(c), c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// DeleteProduct handles DELETE /v1/products/:id and its admin twin.
func (h *Handler) DeleteProduct(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.engine.DeleteProduct(ctx, middleware.UserID(c), c.Param("id")); err != nil {
		return h.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MyProducts handles GET /v1/merchant/products.
func (h *Handler) MyProducts(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ps, err := h.engine.ListProducts(ctx, middleware.UserID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, productList{Items: ps})
}

// GetProduct handles GET /v1/products/:id.  Guests only see approved
// listings.
func (h *Handler) GetProduct(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.engine.GetProduct(ctx, c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	if p.Status != model.ProductApproved {
		return h.writeError(c, model.ErrNotFound)
	}
	return c.JSON(http.StatusOK, p)
}

// SetSchedules handles PUT /v1/products/:id/schedules.  The whole batch is
// written atomically or not at all.
func (h *Handler) SetSchedules(c echo.Context) error {
	var req schedulesReq
	if err := h.bind(c, &req); err != nil {
		return h.writeError(c, err)
	}
	batch := service.BatchUpsert{ProductID: c.Param("id")}
	for _, it := range req.Schedules {
		d, err := model.ParseTravelDate(it.Date)
		if err != nil {
			return h.writeError(c, err)
		}
		batch.Schedules = append(batch.Schedules, service.ScheduleInput{Date: d, Price: it.Price, Stock: it.Stock})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.engine.UpsertSchedules(ctx, middleware.UserID(c), batch)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, scheduleList{ProductID: batch.ProductID, Items: out})
}

// ListSchedules handles GET /v1/products/:id/schedules?from=&to=.  Without
// a range it returns the coming defaultCalendarWindow days.
func (h *Handler) ListSchedules(c echo.Context) error {
	from := h.engine.Today()
	if s := c.QueryParam("from"); s != "" {
		d, err := model.ParseTravelDate(s)
		if err != nil {
			return h.writeError(c, err)
		}
		from = d
	}
	to := from.AddDays(defaultCalendarWindow - 1)
	if s := c.QueryParam("to"); s != "" {
		d, err := model.ParseTravelDate(s)
		if err != nil {
			return h.writeError(c, err)
		}
		to = d
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.engine.ListSchedules(ctx, c.Param("id"), from, to)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, scheduleList{ProductID: c.Param("id"), Items: out})
}
