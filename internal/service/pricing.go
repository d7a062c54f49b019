package service

import (
	"github.com/shopspring/decimal"

	"github.com/iliyamo/tour-marketplace/internal/model"
)

// PricingPolicy turns a party into the number of unit prices it pays.
type PricingPolicy interface {
	Weight(p model.PartySize) decimal.Decimal
}

// WeightedPricing charges each traveller kind a fraction of the unit price.
type WeightedPricing struct {
	Adult        decimal.Decimal
	ChildWithBed decimal.Decimal
	ChildNoBed   decimal.Decimal
	Infant       decimal.Decimal
}

// DefaultPricing charges the full price for everyone except infants, who
// travel free but still take a place.
var DefaultPricing = WeightedPricing{
	Adult:        decimal.NewFromInt(1),
	ChildWithBed: decimal.NewFromInt(1),
	ChildNoBed:   decimal.NewFromInt(1),
	Infant:       decimal.Zero,
}

// Weight implements PricingPolicy.
func (w WeightedPricing) Weight(p model.PartySize) decimal.Decimal {
	return w.Adult.Mul(decimal.NewFromInt(int64(p.Adults))).
		Add(w.ChildWithBed.Mul(decimal.NewFromInt(int64(p.ChildrenWithBed)))).
		Add(w.ChildNoBed.Mul(decimal.NewFromInt(int64(p.ChildrenNoBed)))).
		Add(w.Infant.Mul(decimal.NewFromInt(int64(p.Infants))))
}

// totalPrice is unit times the policy weight, rounded to cents.
func totalPrice(policy PricingPolicy, unit decimal.Decimal, p model.PartySize) decimal.Decimal {
	return unit.Mul(policy.Weight(p)).Round(2)
}
