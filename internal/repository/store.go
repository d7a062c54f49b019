package repository

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/iliyamo/tour-marketplace/internal/model"
)

// OrderFilter selects orders for listings.  Empty fields do not filter;
// set fields are combined with AND.  Results are newest first.
type OrderFilter struct {
	BuyerID        string
	MerchantID     string
	BookingAgentID string
	ProductID      string
	Status         model.OrderStatus
}

// Queries is the full set of storage operations.  The same methods run
// either directly against the database or inside a transaction obtained
// from Store.InTx.  Lock* methods take a row lock when called inside a
// transaction and behave as plain reads otherwise.
type Queries interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	LockUser(ctx context.Context, id string) (model.User, error)
	UpdateUserStatus(ctx context.Context, id string, status model.UserStatus) error

	CreateProduct(ctx context.Context, p *model.Product) error
	GetProduct(ctx context.Context, id string) (model.Product, error)
	LockProduct(ctx context.Context, id string) (model.Product, error)
	ShareLockProduct(ctx context.Context, id string) (model.Product, error)
	ListProductsByOwner(ctx context.Context, ownerID string) ([]model.Product, error)
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id string) error

	GetSchedule(ctx context.Context, productID string, date civil.Date) (model.PriceSchedule, error)
	LockSchedule(ctx context.Context, productID string, date civil.Date) (model.PriceSchedule, error)
	ListSchedules(ctx context.Context, productID string, from, to civil.Date) ([]model.PriceSchedule, error)
	UpsertSchedule(ctx context.Context, s *model.PriceSchedule) error
	AdjustReserved(ctx context.Context, productID string, date civil.Date, delta int) error

	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, id string) (model.Order, error)
	LockOrder(ctx context.Context, id string) (model.Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]model.Order, error)
	LockDueOrders(ctx context.Context, before civil.Date, limit int) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, o *model.Order) error
	CountOpenOrders(ctx context.Context, productID string) (int, error)
}

// Store is a Queries bound to the database plus the ability to run a
// function atomically.  InTx commits when fn returns nil and rolls back
// otherwise, including when ctx is cancelled before the commit.
type Store interface {
	Queries
	InTx(ctx context.Context, fn func(q Queries) error) error
}
