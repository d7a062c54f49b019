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

// dbtx is the subset of *sql.DB and *sql.Tx the queries need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// sqlQueries implements Queries on top of a dbtx.  The per-table methods
// live in user_repository.go, product_repository.go,
// schedule_repository.go and order_repository.go.
type sqlQueries struct {
	q dbtx
}

// MySQLStore is the production Store.  All timestamps are UTC; travel
// dates are DATE columns and never pass through a time zone.
type MySQLStore struct {
	sqlQueries
	db *sql.DB
}

// NewMySQLStore returns a Store bound to db.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{sqlQueries: sqlQueries{q: db}, db: db}
}

// InTx runs fn inside a READ COMMITTED transaction.  Row locks taken with
// the Lock* methods are held until fn returns.
func (s *MySQLStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", classify(err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlQueries{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", classify(err))
	}
	committed = true
	return nil
}

// notFound turns sql.ErrNoRows into model.ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, model.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, classify(err))
}

// sqlDate renders a calendar date for a DATE column.
func sqlDate(d civil.Date) string { return d.String() }

// dateOf converts a scanned DATE (midnight UTC with parseTime=true) back
// to a calendar date.
func dateOf(t time.Time) civil.Date { return civil.DateOf(t.UTC()) }

// nullable maps the empty string to NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nowUTC() time.Time { return time.Now().UTC().Truncate(time.Second) }
