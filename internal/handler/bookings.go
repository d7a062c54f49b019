package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-marketplace/internal/middleware"
	"github.com/iliyamo/tour-marketplace/internal/model"
	"github.com/iliyamo/tour-marketplace/internal/service"
)

type bookingReq struct {
	ProductID  string          `json:"product_id" validate:"required"`
	TravelDate string          `json:"travel_date" validate:"required"`
	PartySize  model.PartySize `json:"party_size"`
	// BuyerID is required when an agent books; customers book for themselves.
	BuyerID string `json:"buyer_id"`
}

// Book handles POST /v1/bookings for customers and agents.
func (h *Handler) Book(c echo.Context) error {
	var req bookingReq
	if err := h.bind(c, &req); err != nil {
		return h.writeError(c, err)
	}
	date, err := model.ParseTravelDate(req.TravelDate)
	if err != nil {
		return h.writeError(c, err)
	}
	br := service.BookingRequest{
		ProductID:  req.ProductID,
		TravelDate: date,
		Party:      req.PartySize,
		BuyerID:    req.BuyerID,
	}
	if middleware.Role(c) == string(model.RoleAgent) {
		br.BookingAgentID = middleware.UserID(c)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.engine.Reserve(ctx, middleware.UserID(c), br)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

// Availability handles GET /v1/availability?product_id=&date=&count=.  The
// answer is advisory; only a booking takes stock.
func (h *Handler) Availability(c echo.Context) error {
	productID := c.QueryParam("product_id")
	if productID == "" {
		return h.writeError(c, model.NewValidationError("product_id", "is required"))
	}
	date, err := model.ParseTravelDate(c.QueryParam("date"))
	if err != nil {
		return h.writeError(c, err)
	}
	count := 1
	if s := c.QueryParam("count"); s != "" {
		if count, err = strconv.Atoi(s); err != nil {
			return h.writeError(c, model.NewValidationError("count", "must be an integer"))
		}
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.engine.CheckAvailability(ctx, productID, date, count)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
