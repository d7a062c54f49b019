package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/tour-marketplace/internal/model"
)

const productColumns = `id, owner_merchant_id, title_zh, title_en, description_zh, description_en, base_price, status, rejection_reason, created_at, updated_at`

func scanProduct(s scanner) (model.Product, error) {
	var (
		p      model.Product
		reason sql.NullString
	)
	err := s.Scan(&p.ID, &p.OwnerMerchantID, &p.Title.ZH, &p.Title.EN, &p.Description.ZH, &p.Description.EN,
		&p.BasePrice, &p.Status, &reason, &p.CreatedAt, &p.UpdatedAt)
	p.RejectionReason = reason.String
	return p, err
}

// CreateProduct inserts p and stamps its timestamps.
func (r *sqlQueries) CreateProduct(ctx context.Context, p *model.Product) error {
	now := nowUTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.OwnerMerchantID, p.Title.ZH, p.Title.EN, p.Description.ZH, p.Description.EN,
		p.BasePrice, p.Status, nullable(p.RejectionReason), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", classify(err))
	}
	return nil
}

// GetProduct fetches a product by id.
func (r *sqlQueries) GetProduct(ctx context.Context, id string) (model.Product, error) {
	p, err := scanProduct(r.q.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id=? LIMIT 1", id))
	if err != nil {
		return model.Product{}, notFound(err, "get product")
	}
	return p, nil
}

// LockProduct reads a product with a row lock.  Product transitions and
// calendar writes take it before any schedule lock.
func (r *sqlQueries) LockProduct(ctx context.Context, id string) (model.Product, error) {
	p, err := scanProduct(r.q.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id=? FOR UPDATE", id))
	if err != nil {
		return model.Product{}, notFound(err, "lock product")
	}
	return p, nil
}

// ShareLockProduct reads a product with a shared lock.  Reservations take
// it so that a concurrent delete waits for them, while reservations on the
// same product do not wait for each other.
func (r *sqlQueries) ShareLockProduct(ctx context.Context, id string) (model.Product, error) {
	p, err := scanProduct(r.q.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id=? FOR SHARE", id))
	if err != nil {
		return model.Product{}, notFound(err, "share lock product")
	}
	return p, nil
}

// ListProductsByOwner returns a merchant's products, newest first.
func (r *sqlQueries) ListProductsByOwner(ctx context.Context, ownerID string) ([]model.Product, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE owner_merchant_id=? ORDER BY created_at DESC, id", ownerID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", classify(err))
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateProduct rewrites the mutable columns of p.
func (r *sqlQueries) UpdateProduct(ctx context.Context, p *model.Product) error {
	p.UpdatedAt = nowUTC()
	res, err := r.q.ExecContext(ctx,
		`UPDATE products
		    SET title_zh=?, title_en=?, description_zh=?, description_en=?, base_price=?,
		        status=?, rejection_reason=?, updated_at=?
		  WHERE id=?`,
		p.Title.ZH, p.Title.EN, p.Description.ZH, p.Description.EN, p.BasePrice,
		p.Status, nullable(p.RejectionReason), p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("update product: %w", classify(err))
	}
	return expectOne(res, "update product")
}

// DeleteProduct removes a product together with its calendar.  Orders
// are left in place; they carry their own copy of what they need.
func (r *sqlQueries) DeleteProduct(ctx context.Context, id string) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM price_schedules WHERE product_id=?", id); err != nil {
		return fmt.Errorf("delete schedules: %w", classify(err))
	}
	res, err := r.q.ExecContext(ctx, "DELETE FROM products WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete product: %w", classify(err))
	}
	return expectOne(res, "delete product")
}
