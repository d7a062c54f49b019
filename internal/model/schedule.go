package model

import (
    "time"

    "cloud.google.com/go/civil"
    "github.com/shopspring/decimal"
)

// PriceSchedule is one day of a product's calendar: the price charged per
// head and the capacity for that travel date.  There is exactly one row per
// (ProductID, TravelDate); the pair is the natural key of the
// `price_schedules` table.
//
// ReservedStock counts heads held by non-terminal orders and never exceeds
// TotalStock.  The number of free places is always derived, see Available.
type PriceSchedule struct {
    ProductID     string          `json:"product_id"`     // price_schedules.product_id
    TravelDate    civil.Date      `json:"travel_date"`    // price_schedules.travel_date (DATE)
    Price         decimal.Decimal `json:"price"`          // price_schedules.price
    TotalStock    int             `json:"total_stock"`    // price_schedules.total_stock
    ReservedStock int             `json:"reserved_stock"` // price_schedules.reserved_stock
    UpdatedAt     time.Time       `json:"updated_at"`     // price_schedules.updated_at
}

// Available returns TotalStock minus ReservedStock.
func (s PriceSchedule) Available() int { return s.TotalStock - s.ReservedStock }

// AvailabilityResult enumerates the outcomes of an availability check.
type AvailabilityResult string

const (
    AvailabilityOK                 AvailabilityResult = "ok"
    AvailabilityInsufficient       AvailabilityResult = "insufficient"
    AvailabilityNoSuchDate         AvailabilityResult = "no_such_date"
    AvailabilityProductNotApproved AvailabilityResult = "product_not_approved"
)

// Availability is the advisory answer to "can N people travel on this
// date".  Available is filled for ok and insufficient results.
type Availability struct {
    Result    AvailabilityResult `json:"result"`
    Available int                `json:"available"`
}
