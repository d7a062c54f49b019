package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/iliyamo/tour-marketplace/internal/model"
)

const orderColumns = `id, order_number, product_id, merchant_id, product_title, travel_date,
	adults, children_with_bed, children_no_bed, infants, unit_price, total_price,
	buyer_id, booking_agent_id, status, stock_released, created_at, updated_at`

func scanOrder(s scanner) (model.Order, error) {
	var (
		o     model.Order
		d     time.Time
		agent sql.NullString
	)
	err := s.Scan(&o.ID, &o.OrderNumber, &o.ProductID, &o.MerchantID, &o.ProductTitle, &d,
		&o.Party.Adults, &o.Party.ChildrenWithBed, &o.Party.ChildrenNoBed, &o.Party.Infants,
		&o.UnitPrice, &o.TotalPrice, &o.BuyerID, &agent, &o.Status, &o.StockReleased,
		&o.CreatedAt, &o.UpdatedAt)
	o.TravelDate = dateOf(d)
	o.BookingAgentID = agent.String
	return o, err
}

func scanOrders(rows *sql.Rows) ([]model.Order, error) {
	defer rows.Close()
	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CreateOrder inserts o.  A colliding order number yields ErrDuplicate so
// the caller can draw a new one.
func (r *sqlQueries) CreateOrder(ctx context.Context, o *model.Order) error {
	now := nowUTC()
	o.CreatedAt, o.UpdatedAt = now, now
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		o.ID, o.OrderNumber, o.ProductID, o.MerchantID, o.ProductTitle, sqlDate(o.TravelDate),
		o.Party.Adults, o.Party.ChildrenWithBed, o.Party.ChildrenNoBed, o.Party.Infants,
		o.UnitPrice, o.TotalPrice, o.BuyerID, nullable(o.BookingAgentID), o.Status, o.StockReleased,
		o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", classify(err))
	}
	return nil
}

// GetOrder fetches an order by id.
func (r *sqlQueries) GetOrder(ctx context.Context, id string) (model.Order, error) {
	o, err := scanOrder(r.q.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id=? LIMIT 1", id))
	if err != nil {
		return model.Order{}, notFound(err, "get order")
	}
	return o, nil
}

// LockOrder reads an order with a row lock.
func (r *sqlQueries) LockOrder(ctx context.Context, id string) (model.Order, error) {
	o, err := scanOrder(r.q.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id=? FOR UPDATE", id))
	if err != nil {
		return model.Order{}, notFound(err, "lock order")
	}
	return o, nil
}

// ListOrders returns the orders matching f, newest first.
func (r *sqlQueries) ListOrders(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	var (
		where []string
		args  []any
	)
	add := func(col, val string) {
		if val != "" {
			where = append(where, col+"=?")
			args = append(args, val)
		}
	}
	add("buyer_id", f.BuyerID)
	add("merchant_id", f.MerchantID)
	add("booking_agent_id", f.BookingAgentID)
	add("product_id", f.ProductID)
	add("status", string(f.Status))

	q := "SELECT " + orderColumns + " FROM orders"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id"

	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", classify(err))
	}
	return scanOrders(rows)
}

// LockDueOrders locks up to limit confirmed orders whose travel date is
// strictly before the given day.
func (r *sqlQueries) LockDueOrders(ctx context.Context, before civil.Date, limit int) ([]model.Order, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE status=? AND travel_date < ? ORDER BY travel_date, id LIMIT ? FOR UPDATE",
		model.OrderConfirmed, sqlDate(before), limit)
	if err != nil {
		return nil, fmt.Errorf("lock due orders: %w", classify(err))
	}
	return scanOrders(rows)
}

// UpdateOrderStatus persists o.Status and o.StockReleased.  Prices and
// party size are immutable once the order exists.
func (r *sqlQueries) UpdateOrderStatus(ctx context.Context, o *model.Order) error {
	o.UpdatedAt = nowUTC()
	res, err := r.q.ExecContext(ctx,
		"UPDATE orders SET status=?, stock_released=?, updated_at=? WHERE id=?",
		o.Status, o.StockReleased, o.UpdatedAt, o.ID)
	if err != nil {
		return fmt.Errorf("update order: %w", classify(err))
	}
	return expectOne(res, "update order")
}

// CountOpenOrders counts pending and confirmed orders for a product.
func (r *sqlQueries) CountOpenOrders(ctx context.Context, productID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM orders WHERE product_id=? AND status IN (?, ?)",
		productID, model.OrderPending, model.OrderConfirmed).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open orders: %w", classify(err))
	}
	return n, nil
}
