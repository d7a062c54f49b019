// Package queue defines the order events exchanged over RabbitMQ, the
// publisher used by the engine and the consumer run by the worker.
package queue

import (
    "time"

    "cloud.google.com/go/civil"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/tour-marketplace/internal/model"
)

// OrderEventsQueue is the durable queue every order event goes to.
const OrderEventsQueue = "order.events"

// OrderEventType says what happened to the order.
type OrderEventType string

const (
    OrderCreated   OrderEventType = "order.created"
    OrderConfirmed OrderEventType = "order.confirmed"
    OrderRejected  OrderEventType = "order.rejected"
    OrderCancelled OrderEventType = "order.cancelled"
    OrderCompleted OrderEventType = "order.completed"
    StockReleased  OrderEventType = "order.stock_released"
)

// OrderEvent is published after an order change has been committed.  It
// carries enough for notification and reporting consumers to work without
// reading the database.
type OrderEvent struct {
    Type        OrderEventType    `json:"type"`
    OrderID     string            `json:"order_id"`
    OrderNumber string            `json:"order_number"`
    ProductID   string            `json:"product_id"`
    MerchantID  string            `json:"merchant_id"`
    BuyerID     string            `json:"buyer_id"`
    TravelDate  civil.Date        `json:"travel_date"`
    Status      model.OrderStatus `json:"status"`
    Count       int               `json:"count"`
    TotalPrice  decimal.Decimal   `json:"total_price"`
    OccurredAt  time.Time         `json:"occurred_at"`
}

// EventFor builds the event describing o at time at.
func EventFor(typ OrderEventType, o model.Order, at time.Time) OrderEvent {
    return OrderEvent{
        Type:        typ,
        OrderID:     o.ID,
        OrderNumber: o.OrderNumber,
        ProductID:   o.ProductID,
        MerchantID:  o.MerchantID,
        BuyerID:     o.BuyerID,
        TravelDate:  o.TravelDate,
        Status:      o.Status,
        Count:       o.Party.Count(),
        TotalPrice:  o.TotalPrice,
        OccurredAt:  at.UTC(),
    }
}

// TypeForStatus maps the status an order just entered to its event type.
func TypeForStatus(s model.OrderStatus) OrderEventType {
    switch s {
    case model.OrderConfirmed:
        return OrderConfirmed
    case model.OrderRejected:
        return OrderRejected
    case model.OrderCancelled:
        return OrderCancelled
    case model.OrderCompleted:
        return OrderCompleted
    }
    return OrderCreated
}
