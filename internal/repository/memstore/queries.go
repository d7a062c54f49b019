package memstore

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/iliyamo/tour-marketplace/internal/model"
	"github.com/iliyamo/tour-marketplace/internal/repository"
)

// The methods below run a single statement outside any transaction.

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.CreateUser(ctx, u)
}

func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetUser(ctx, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetUserByEmail(ctx, email)
}

func (s *Store) LockUser(ctx context.Context, id string) (model.User, error) {
	return s.GetUser(ctx, id)
}

func (s *Store) UpdateUserStatus(ctx context.Context, id string, status model.UserStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.UpdateUserStatus(ctx, id, status)
}

func (s *Store) CreateProduct(ctx context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.CreateProduct(ctx, p)
}

func (s *Store) GetProduct(ctx context.Context, id string) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetProduct(ctx, id)
}

func (s *Store) LockProduct(ctx context.Context, id string) (model.Product, error) {
	return s.GetProduct(ctx, id)
}

func (s *Store) ShareLockProduct(ctx context.Context, id string) (model.Product, error) {
	return s.GetProduct(ctx, id)
}

func (s *Store) ListProductsByOwner(ctx context.Context, ownerID string) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ListProductsByOwner(ctx, ownerID)
}

func (s *Store) UpdateProduct(ctx context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.UpdateProduct(ctx, p)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.DeleteProduct(ctx, id)
}

func (s *Store) GetSchedule(ctx context.Context, productID string, date civil.Date) (model.PriceSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetSchedule(ctx, productID, date)
}

func (s *Store) LockSchedule(ctx context.Context, productID string, date civil.Date) (model.PriceSchedule, error) {
	return s.GetSchedule(ctx, productID, date)
}

func (s *Store) ListSchedules(ctx context.Context, productID string, from, to civil.Date) ([]model.PriceSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ListSchedules(ctx, productID, from, to)
}

func (s *Store) UpsertSchedule(ctx context.Context, ps *model.PriceSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.UpsertSchedule(ctx, ps)
}

func (s *Store) AdjustReserved(ctx context.Context, productID string, date civil.Date, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.AdjustReserved(ctx, productID, date, delta)
}

func (s *Store) CreateOrder(ctx context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.CreateOrder(ctx, o)
}

func (s *Store) GetOrder(ctx context.Context, id string) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.GetOrder(ctx, id)
}

func (s *Store) LockOrder(ctx context.Context, id string) (model.Order, error) {
	return s.GetOrder(ctx, id)
}

func (s *Store) ListOrders(ctx context.Context, f repository.OrderFilter) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.ListOrders(ctx, f)
}

func (s *Store) LockDueOrders(ctx context.Context, before civil.Date, limit int) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.LockDueOrders(ctx, before, limit)
}

func (s *Store) UpdateOrderStatus(ctx context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.UpdateOrderStatus(ctx, o)
}

func (s *Store) CountOpenOrders(ctx context.Context, productID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.CountOpenOrders(ctx, productID)
}
