package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tour-marketplace/internal/authz"
	"github.com/iliyamo/tour-marketplace/internal/model"
	"github.com/iliyamo/tour-marketplace/internal/queue"
	"github.com/iliyamo/tour-marketplace/internal/repository"
	"github.com/iliyamo/tour-marketplace/internal/workflow"
)

// orderNumberAttempts bounds how often a colliding order number is redrawn.
const orderNumberAttempts = 5

// BookingRequest asks for places on one product and date.  A customer
// booking for themselves may leave BuyerID empty.  BookingAgentID is taken
// from the caller when the caller is an agent.
type BookingRequest struct {
	ProductID      string
	TravelDate     civil.Date
	Party          model.PartySize
	BuyerID        string
	BookingAgentID string
}

// Reserve atomically checks and takes stock for a booking and records a
// pending order priced from the day's schedule.  Two reservations for the
// same day never both succeed when together they exceed capacity.
func (e *Engine) Reserve(ctx context.Context, actorID string, req BookingRequest) (model.Order, error) {
	if err := req.Party.Validate(); err != nil {
		return model.Order{}, err
	}
	if !req.TravelDate.IsValid() {
		return model.Order{}, model.NewValidationError("travel_date", "not a calendar date")
	}
	today := e.Today()
	if req.TravelDate.Before(today) {
		return model.Order{}, model.NewValidationError("travel_date", "is in the past")
	}

	var order model.Order
	err := e.inTx(ctx, "reserve", func(q repository.Queries) error {
		actor, err := e.actor(ctx, q, actorID)
		if err != nil {
			return err
		}
		buyerID, agentID := req.BuyerID, ""
		switch actor.Role {
		case model.RoleCustomer:
			if buyerID == "" {
				buyerID = actor.ID
			}
		case model.RoleAgent:
			if req.BookingAgentID != "" && req.BookingAgentID != actor.ID {
				return model.NewValidationError("booking_agent_id", "must be the calling agent")
			}
			agentID = actor.ID
		}
		if buyerID == "" {
			return model.NewValidationError("buyer_id", "is required")
		}
		buyer, err := q.GetUser(ctx, buyerID)
		if errors.Is(err, model.ErrNotFound) {
			return model.NewValidationError("buyer_id", "unknown customer")
		}
		if err != nil {
			return err
		}
		if err := authz.Authorize(actor, authz.CreateOrder, authz.Target{
			BuyerID:              buyer.ID,
			BuyerManagingAgentID: buyer.ManagingAgentID,
		}).Err(); err != nil {
			return err
		}
		if buyer.Role != model.RoleCustomer {
			return model.NewValidationError("buyer_id", "orders are placed for customers")
		}
		if buyer.Status != model.UserApproved {
			return model.Denied("buyer account is not approved")
		}

		// The product lock comes first, as in calendar writes and deletes,
		// and an unapproved product wins over a missing date.
		p, err := q.ShareLockProduct(ctx, req.ProductID)
		if err != nil {
			return err
		}
		if p.Status != model.ProductApproved {
			return fmt.Errorf("product %s is %s: %w", p.ID, p.Status, model.ErrProductNotApproved)
		}
		ps, err := q.LockSchedule(ctx, req.ProductID, req.TravelDate)
		if err != nil {
			return err
		}

		count := req.Party.Count()
		if ps.ReservedStock+count > ps.TotalStock {
			return &model.InsufficientError{Requested: count, Available: ps.Available()}
		}
		if err := q.AdjustReserved(ctx, ps.ProductID, ps.TravelDate, count); err != nil {
			return err
		}

		order = model.Order{
			ID:             newID(),
			ProductID:      p.ID,
			MerchantID:     p.OwnerMerchantID,
			ProductTitle:   p.DisplayTitle(),
			TravelDate:     ps.TravelDate,
			Party:          req.Party,
			UnitPrice:      ps.Price,
			TotalPrice:     totalPrice(e.pricing, ps.Price, req.Party),
			BuyerID:        buyer.ID,
			BookingAgentID: agentID,
			Status:         model.OrderPending,
		}
		return createWithNumber(ctx, q, &order, today)
	})
	if err != nil {
		return model.Order{}, err
	}

	e.log.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"product_id":   order.ProductID,
		"travel_date":  order.TravelDate.String(),
		"count":        order.Party.Count(),
		"total":        order.TotalPrice.StringFixed(2),
	}).Info("order reserved")
	e.invalidate(ctx, order.ProductID)
	e.publish(ctx, queue.EventFor(queue.OrderCreated, order, e.now()))
	return order, nil
}

// createWithNumber inserts o under a fresh order number, drawing again
// when the number is already taken.
func createWithNumber(ctx context.Context, q repository.Queries, o *model.Order, day civil.Date) error {
	var err error
	for i := 0; i < orderNumberAttempts; i++ {
		o.OrderNumber = OrderNumber(day)
		if err = q.CreateOrder(ctx, o); !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
	}
	return fmt.Errorf("no free order number after %d attempts: %w", orderNumberAttempts, err)
}

// OrderNumber formats a human-facing order number: "TO", the booking
// day as yyyymmdd, a dash and eight random upper-case hex digits.
func OrderNumber(day civil.Date) string {
	u := uuid.New()
	return fmt.Sprintf("TO%04d%02d%02d-%s", day.Year, int(day.Month), day.Day,
		strings.ToUpper(fmt.Sprintf("%x", u[:4])))
}

// Release gives a rejected or cancelled order's places back to the
// calendar.  Releasing twice is a no-op.
func (e *Engine) Release(ctx context.Context, orderID string) error {
	var (
		o       model.Order
		changed bool
	)
	err := e.inTx(ctx, "release", func(q repository.Queries) error {
		var err error
		if o, err = q.LockOrder(ctx, orderID); err != nil {
			return err
		}
		if !workflow.ReleasesStock(o.Status) {
			return fmt.Errorf("%w: release of %s order", model.ErrInvalidTransition, o.Status)
		}
		changed, err = release(ctx, q, &o)
		if err != nil {
			return err
		}
		if changed {
			return q.UpdateOrderStatus(ctx, &o)
		}
		return nil
	})
	if err != nil || !changed {
		return err
	}
	e.logReleased(o)
	e.invalidate(ctx, o.ProductID)
	e.publish(ctx, queue.EventFor(queue.StockReleased, o, e.now()))
	return nil
}

// release hands o's places back inside the caller's transaction and marks
// o released.  The caller persists o.  It reports false when o had
// already been released.
func release(ctx context.Context, q repository.Queries, o *model.Order) (bool, error) {
	if o.StockReleased {
		return false, nil
	}
	if err := q.AdjustReserved(ctx, o.ProductID, o.TravelDate, -o.Party.Count()); err != nil {
		return false, err
	}
	o.StockReleased = true
	return true, nil
}

func (e *Engine) logReleased(o model.Order) {
	e.log.WithFields(logrus.Fields{
		"order_id":    o.ID,
		"product_id":  o.ProductID,
		"travel_date": o.TravelDate.String(),
		"count":       o.Party.Count(),
	}).Info("stock released")
}
