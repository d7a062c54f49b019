package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/iliyamo/tour-marketplace/internal/model"
)

const scheduleColumns = `product_id, travel_date, price, total_stock, reserved_stock, updated_at`

func scanSchedule(s scanner) (model.PriceSchedule, error) {
	var (
		ps model.PriceSchedule
		d  time.Time
	)
	err := s.Scan(&ps.ProductID, &d, &ps.Price, &ps.TotalStock, &ps.ReservedStock, &ps.UpdatedAt)
	ps.TravelDate = dateOf(d)
	return ps, err
}

// GetSchedule returns the calendar entry for one day.  A missing row
// yields model.ErrNoSuchDate.
func (r *sqlQueries) GetSchedule(ctx context.Context, productID string, date civil.Date) (model.PriceSchedule, error) {
	return r.schedule(ctx, productID, date, "")
}

// LockSchedule is GetSchedule with a row lock.
func (r *sqlQueries) LockSchedule(ctx context.Context, productID string, date civil.Date) (model.PriceSchedule, error) {
	return r.schedule(ctx, productID, date, " FOR UPDATE")
}

func (r *sqlQueries) schedule(ctx context.Context, productID string, date civil.Date, suffix string) (model.PriceSchedule, error) {
	ps, err := scanSchedule(r.q.QueryRowContext(ctx,
		"SELECT "+scheduleColumns+" FROM price_schedules WHERE product_id=? AND travel_date=?"+suffix,
		productID, sqlDate(date)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.PriceSchedule{}, fmt.Errorf("%s %s: %w", productID, date, model.ErrNoSuchDate)
		}
		return model.PriceSchedule{}, fmt.Errorf("get schedule: %w", classify(err))
	}
	return ps, nil
}

// ListSchedules returns the entries with from <= travel_date <= to in date
// order.
func (r *sqlQueries) ListSchedules(ctx context.Context, productID string, from, to civil.Date) ([]model.PriceSchedule, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+scheduleColumns+" FROM price_schedules WHERE product_id=? AND travel_date BETWEEN ? AND ? ORDER BY travel_date",
		productID, sqlDate(from), sqlDate(to))
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", classify(err))
	}
	defer rows.Close()

	var out []model.PriceSchedule
	for rows.Next() {
		ps, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

// UpsertSchedule sets price and total stock for a day, creating the row
// with nothing reserved when it does not exist.  reserved_stock is never
// written here; the caller has already checked the new total against it
// under the row lock.
func (r *sqlQueries) UpsertSchedule(ctx context.Context, s *model.PriceSchedule) error {
	s.UpdatedAt = nowUTC()
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO price_schedules (product_id, travel_date, price, total_stock, reserved_stock, updated_at)
		 VALUES (?,?,?,?,0,?)
		 ON DUPLICATE KEY UPDATE price=VALUES(price), total_stock=VALUES(total_stock), updated_at=VALUES(updated_at)`,
		s.ProductID, sqlDate(s.TravelDate), s.Price, s.TotalStock, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert schedule: %w", classify(err))
	}
	return nil
}

// AdjustReserved adds delta to reserved_stock.  The UPDATE only matches
// when the result stays within [0, total_stock]; otherwise ErrRowGuard is
// returned and nothing changes.
func (r *sqlQueries) AdjustReserved(ctx context.Context, productID string, date civil.Date, delta int) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE price_schedules
		    SET reserved_stock = reserved_stock + ?, updated_at=?
		  WHERE product_id=? AND travel_date=?
		    AND reserved_stock + ? BETWEEN 0 AND total_stock`,
		delta, nowUTC(), productID, sqlDate(date), delta)
	if err != nil {
		return fmt.Errorf("adjust reserved: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust reserved: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("adjust reserved %s %s by %d: %w", productID, date, delta, ErrRowGuard)
	}
	return nil
}
