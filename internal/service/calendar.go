package service

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tour-marketplace/internal/authz"
	"github.com/iliyamo/tour-marketplace/internal/model"
	"github.com/iliyamo/tour-marketplace/internal/repository"
)

// ScheduleInput is one day of a calendar write.
type ScheduleInput struct {
	Date  civil.Date
	Price decimal.Decimal
	Stock int
}

func (in ScheduleInput) validate() error {
	if !in.Date.IsValid() {
		return model.NewValidationError("date", "not a calendar date")
	}
	if in.Price.IsNegative() {
		return model.NewValidationError("price", "must not be negative")
	}
	if in.Stock < 0 {
		return model.NewValidationError("stock", "must not be negative")
	}
	return nil
}

// BatchUpsert sets several days of one product's calendar at once.
type BatchUpsert struct {
	ProductID string
	Schedules []ScheduleInput
}

// UpsertSchedule sets price and capacity of one day.  The reserved count
// is kept; lowering capacity below it fails with ErrCapacityBelowReserved
// and leaves the day untouched.
func (e *Engine) UpsertSchedule(ctx context.Context, actorID, productID string, date civil.Date, price decimal.Decimal, totalStock int) (model.PriceSchedule, error) {
	out, err := e.UpsertSchedules(ctx, actorID, BatchUpsert{
		ProductID: productID,
		Schedules: []ScheduleInput{{Date: date, Price: price, Stock: totalStock}},
	})
	if err != nil {
		return model.PriceSchedule{}, err
	}
	return out[0], nil
}

// UpsertSchedules applies a batch in one transaction.  Any failing day
// fails the whole batch.
func (e *Engine) UpsertSchedules(ctx context.Context, actorID string, b BatchUpsert) ([]model.PriceSchedule, error) {
	if len(b.Schedules) == 0 {
		return nil, model.NewValidationError("schedules", "at least one day is required")
	}
	seen := make(map[civil.Date]bool, len(b.Schedules))
	for _, in := range b.Schedules {
		if err := in.validate(); err != nil {
			return nil, err
		}
		if seen[in.Date] {
			return nil, model.NewValidationError("schedules", "duplicate date "+in.Date.String())
		}
		seen[in.Date] = true
	}

	var out []model.PriceSchedule
	err := e.inTx(ctx, "upsert schedules", func(q repository.Queries) error {
		out = out[:0]
		actor, err := e.actor(ctx, q, actorID)
		if err != nil {
			return err
		}
		p, err := q.LockProduct(ctx, b.ProductID)
		if err != nil {
			return err
		}
		if err := authz.Authorize(actor, authz.SetCalendar, authz.Target{ProductOwnerID: p.OwnerMerchantID}).Err(); err != nil {
			return err
		}
		for _, in := range b.Schedules {
			reserved := 0
			cur, err := q.LockSchedule(ctx, b.ProductID, in.Date)
			switch {
			case err == nil:
				reserved = cur.ReservedStock
			case errors.Is(err, model.ErrNoSuchDate):
			default:
				return err
			}
			if reserved > in.Stock {
				return fmt.Errorf("%s: %d reserved, %d requested: %w",
					in.Date, reserved, in.Stock, model.ErrCapacityBelowReserved)
			}
			ps := model.PriceSchedule{
				ProductID:  b.ProductID,
				TravelDate: in.Date,
				Price:      in.Price,
				TotalStock: in.Stock,
			}
			if err := q.UpsertSchedule(ctx, &ps); err != nil {
				return err
			}
			ps.ReservedStock = reserved
			out = append(out, ps)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.invalidate(ctx, b.ProductID)
	e.log.WithFields(logrus.Fields{"product_id": b.ProductID, "days": len(out), "actor_id": actorID}).
		Info("calendar updated")
	return out, nil
}

// GetSchedule returns one day of a product's calendar.
func (e *Engine) GetSchedule(ctx context.Context, productID string, date civil.Date) (model.PriceSchedule, error) {
	return e.store.GetSchedule(ctx, productID, date)
}

// ListSchedules returns the days from..to inclusive in date order.  An
// unknown product is ErrNotFound; a product without days yields an empty
// slice.
func (e *Engine) ListSchedules(ctx context.Context, productID string, from, to civil.Date) ([]model.PriceSchedule, error) {
	if !from.IsValid() || !to.IsValid() {
		return nil, model.NewValidationError("range", "not a calendar date")
	}
	if from.After(to) {
		return nil, model.NewValidationError("range", "from is after to")
	}
	// The fill goes under the version read before the store, so an
	// invalidation racing this call leaves the entry unreachable.
	var version string
	if e.cache != nil {
		hit, v, ok, err := e.cache.GetSchedules(ctx, productID, from, to)
		switch {
		case err != nil:
			e.log.WithError(err).WithField("product_id", productID).Warn("calendar cache read failed")
		case ok:
			return hit, nil
		default:
			version = v
		}
	}
	if _, err := e.store.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	out, err := e.store.ListSchedules(ctx, productID, from, to)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.PriceSchedule{}
	}
	if version != "" {
		if err := e.cache.SetSchedules(ctx, productID, version, from, to, out); err != nil {
			e.log.WithError(err).WithField("product_id", productID).Warn("calendar cache write failed")
		}
	}
	return out, nil
}
