package service

import (
	"context"
	"errors"

	"cloud.google.com/go/civil"

	"github.com/iliyamo/tour-marketplace/internal/model"
)

// CheckAvailability answers whether requested people could book the date
// right now.  The answer is advisory: only Reserve holds the lock that
// makes it binding.  Expected outcomes are results, not errors.
func (e *Engine) CheckAvailability(ctx context.Context, productID string, date civil.Date, requested int) (model.Availability, error) {
	if requested <= 0 {
		return model.Availability{}, model.NewValidationError("count", "must be positive")
	}
	p, err := e.store.GetProduct(ctx, productID)
	if err != nil {
		return model.Availability{}, err
	}
	if p.Status != model.ProductApproved {
		return model.Availability{Result: model.AvailabilityProductNotApproved}, nil
	}
	ps, err := e.store.GetSchedule(ctx, productID, date)
	if errors.Is(err, model.ErrNoSuchDate) {
		return model.Availability{Result: model.AvailabilityNoSuchDate}, nil
	}
	if err != nil {
		return model.Availability{}, err
	}
	avail := ps.Available()
	if requested > avail {
		return model.Availability{Result: model.AvailabilityInsufficient, Available: avail}, nil
	}
	return model.Availability{Result: model.AvailabilityOK, Available: avail}, nil
}
