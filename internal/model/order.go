package model

import (
    "fmt"
    "time"

    "cloud.google.com/go/civil"
    "github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
    OrderPending   OrderStatus = "pending"
    OrderConfirmed OrderStatus = "confirmed"
    OrderRejected  OrderStatus = "rejected"
    OrderCancelled OrderStatus = "cancelled"
    OrderCompleted OrderStatus = "completed"
)

// Terminal reports whether no further transition may leave s.
func (s OrderStatus) Terminal() bool {
    return s == OrderRejected || s == OrderCancelled || s == OrderCompleted
}

// Open reports whether an order in state s still holds stock and counts
// as outstanding for its product.
func (s OrderStatus) Open() bool {
    return s == OrderPending || s == OrderConfirmed
}

// PartySize breaks a booking down by traveller kind.
type PartySize struct {
    Adults          int `json:"adults"`
    ChildrenWithBed int `json:"children_with_bed"`
    ChildrenNoBed   int `json:"children_no_bed"`
    Infants         int `json:"infants"`
}

// Count is the number of places the party occupies.  Infants count too.
func (p PartySize) Count() int {
    return p.Adults + p.ChildrenWithBed + p.ChildrenNoBed + p.Infants
}

// MaxPartyMembers caps each traveller kind of a single booking, which also
// keeps Count far from integer overflow.
const MaxPartyMembers = 10000

// Validate checks that every field lies in [0, MaxPartyMembers] and at
// least one is positive.
func (p PartySize) Validate() error {
    for _, n := range []int{p.Adults, p.ChildrenWithBed, p.ChildrenNoBed, p.Infants} {
        if n < 0 {
            return NewValidationError("party_size", "counts must not be negative")
        }
        if n > MaxPartyMembers {
            return NewValidationError("party_size", fmt.Sprintf("at most %d travellers of each kind", MaxPartyMembers))
        }
    }
    if p.Count() == 0 {
        return NewValidationError("party_size", "at least one traveller is required")
    }
    return nil
}

// Order records a booking of one product on one travel date.  UnitPrice
// and TotalPrice are captured at booking time and never change afterwards.
// MerchantID and ProductTitle are copied from the product so the order
// remains meaningful if the product is deleted.
//
// StockReleased is set once the order's places have been handed back to
// the calendar; it is what makes releasing idempotent.
type Order struct {
    ID             string          `json:"id"`                         // orders.id
    OrderNumber    string          `json:"order_number"`               // orders.order_number (unique)
    ProductID      string          `json:"product_id"`                 // orders.product_id
    MerchantID     string          `json:"merchant_id"`                // orders.merchant_id
    ProductTitle   string          `json:"product_title"`              // orders.product_title
    TravelDate     civil.Date      `json:"travel_date"`                // orders.travel_date (DATE)
    Party          PartySize       `json:"party_size"`                 // orders.adults .. orders.infants
    UnitPrice      decimal.Decimal `json:"unit_price"`                 // orders.unit_price
    TotalPrice     decimal.Decimal `json:"total_price"`                // orders.total_price
    BuyerID        string          `json:"buyer_id"`                   // orders.buyer_id
    BookingAgentID string          `json:"booking_agent_id,omitempty"` // orders.booking_agent_id (nullable)
    Status         OrderStatus     `json:"status"`                     // orders.status
    StockReleased  bool            `json:"stock_released"`             // orders.stock_released
    CreatedAt      time.Time       `json:"created_at"`                 // orders.created_at
    UpdatedAt      time.Time       `json:"updated_at"`                 // orders.updated_at
}
