// Package memstore is an in-process repository.Store.  It backs the
// engine tests and the STORE_DRIVER=memory mode of the binaries.
//
// A transaction holds the store mutex from start to finish and works on a
// copy of the data, which replaces the live data only when the function
// returns nil.  That gives the same guarantees the row locks give in MySQL,
// at the price of serializing all transactions.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/iliyamo/tour-marketplace/internal/model"
	"github.com/iliyamo/tour-marketplace/internal/repository"
)

type scheduleKey struct {
	productID string
	date      civil.Date
}

type state struct {
	users     map[string]model.User
	emails    map[string]string
	products  map[string]model.Product
	schedules map[scheduleKey]model.PriceSchedule
	orders    map[string]model.Order
	numbers   map[string]string
}

func newState() *state {
	return &state{
		users:     map[string]model.User{},
		emails:    map[string]string{},
		products:  map[string]model.Product{},
		schedules: map[scheduleKey]model.PriceSchedule{},
		orders:    map[string]model.Order{},
		numbers:   map[string]string{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.emails {
		c.emails[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.schedules {
		c.schedules[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.numbers {
		c.numbers[k] = v
	}
	return c
}

// Store is safe for concurrent use.  The zero value is not usable; call New.
type Store struct {
	mu sync.Mutex
	st *state
}

// New returns an empty store.
func New() *Store { return &Store{st: newState()} }

var (
	_ repository.Store   = (*Store)(nil)
	_ repository.Queries = (*state)(nil)
)

// InTx runs fn against a private copy of the data and publishes the copy
// when fn succeeds and ctx is still live.
func (s *Store) InTx(ctx context.Context, fn func(q repository.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	work := s.st.clone()
	if err := fn(work); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.st = work
	return nil
}

func now() time.Time { return time.Now().UTC() }

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// users

func (s *state) CreateUser(_ context.Context, u *model.User) error {
	u.Email = normEmail(u.Email)
	if _, ok := s.users[u.ID]; ok {
		return fmt.Errorf("insert user: %w", repository.ErrDuplicate)
	}
	if _, ok := s.emails[u.Email]; ok {
		return fmt.Errorf("insert user: %w", repository.ErrDuplicate)
	}
	t := now()
	u.CreatedAt, u.UpdatedAt = t, t
	s.users[u.ID] = *u
	s.emails[u.Email] = u.ID
	return nil
}

func (s *state) GetUser(_ context.Context, id string) (model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("get user: %w", model.ErrNotFound)
	}
	return u, nil
}

func (s *state) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	id, ok := s.emails[normEmail(email)]
	if !ok {
		return model.User{}, fmt.Errorf("get user by email: %w", model.ErrNotFound)
	}
	return s.GetUser(ctx, id)
}

func (s *state) LockUser(ctx context.Context, id string) (model.User, error) {
	return s.GetUser(ctx, id)
}

func (s *state) UpdateUserStatus(_ context.Context, id string, status model.UserStatus) error {
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("update user status: %w", model.ErrNotFound)
	}
	u.Status = status
	u.UpdatedAt = now()
	s.users[id] = u
	return nil
}

// products

func (s *state) CreateProduct(_ context.Context, p *model.Product) error {
	if _, ok := s.products[p.ID]; ok {
		return fmt.Errorf("insert product: %w", repository.ErrDuplicate)
	}
	t := now()
	p.CreatedAt, p.UpdatedAt = t, t
	s.products[p.ID] = *p
	return nil
}

func (s *state) GetProduct(_ context.Context, id string) (model.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return model.Product{}, fmt.Errorf("get product: %w", model.ErrNotFound)
	}
	return p, nil
}

func (s *state) LockProduct(ctx context.Context, id string) (model.Product, error) {
	return s.GetProduct(ctx, id)
}

func (s *state) ShareLockProduct(ctx context.Context, id string) (model.Product, error) {
	return s.GetProduct(ctx, id)
}

func (s *state) ListProductsByOwner(_ context.Context, ownerID string) ([]model.Product, error) {
	var out []model.Product
	for _, p := range s.products {
		if p.OwnerMerchantID == ownerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *state) UpdateProduct(_ context.Context, p *model.Product) error {
	cur, ok := s.products[p.ID]
	if !ok {
		return fmt.Errorf("update product: %w", model.ErrNotFound)
	}
	p.OwnerMerchantID = cur.OwnerMerchantID
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = now()
	s.products[p.ID] = *p
	return nil
}

func (s *state) DeleteProduct(_ context.Context, id string) error {
	if _, ok := s.products[id]; !ok {
		return fmt.Errorf("delete product: %w", model.ErrNotFound)
	}
	for k := range s.schedules {
		if k.productID == id {
			delete(s.schedules, k)
		}
	}
	delete(s.products, id)
	return nil
}

// schedules

func (s *state) GetSchedule(_ context.Context, productID string, date civil.Date) (model.PriceSchedule, error) {
	ps, ok := s.schedules[scheduleKey{productID, date}]
	if !ok {
		return model.PriceSchedule{}, fmt.Errorf("%s %s: %w", productID, date, model.ErrNoSuchDate)
	}
	return ps, nil
}

func (s *state) LockSchedule(ctx context.Context, productID string, date civil.Date) (model.PriceSchedule, error) {
	return s.GetSchedule(ctx, productID, date)
}

func (s *state) ListSchedules(_ context.Context, productID string, from, to civil.Date) ([]model.PriceSchedule, error) {
	var out []model.PriceSchedule
	for k, ps := range s.schedules {
		if k.productID == productID && !k.date.Before(from) && !k.date.After(to) {
			out = append(out, ps)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TravelDate.Before(out[j].TravelDate) })
	return out, nil
}

func (s *state) UpsertSchedule(_ context.Context, ps *model.PriceSchedule) error {
	k := scheduleKey{ps.ProductID, ps.TravelDate}
	cur := s.schedules[k]
	ps.ReservedStock = cur.ReservedStock
	ps.UpdatedAt = now()
	s.schedules[k] = *ps
	return nil
}

func (s *state) AdjustReserved(_ context.Context, productID string, date civil.Date, delta int) error {
	k := scheduleKey{productID, date}
	ps, ok := s.schedules[k]
	next := ps.ReservedStock + delta
	if !ok || next < 0 || next > ps.TotalStock {
		return fmt.Errorf("adjust reserved %s %s by %d: %w", productID, date, delta, repository.ErrRowGuard)
	}
	ps.ReservedStock = next
	ps.UpdatedAt = now()
	s.schedules[k] = ps
	return nil
}

// orders

func (s *state) CreateOrder(_ context.Context, o *model.Order) error {
	if _, ok := s.orders[o.ID]; ok {
		return fmt.Errorf("insert order: %w", repository.ErrDuplicate)
	}
	if _, ok := s.numbers[o.OrderNumber]; ok {
		return fmt.Errorf("insert order: %w", repository.ErrDuplicate)
	}
	t := now()
	o.CreatedAt, o.UpdatedAt = t, t
	s.orders[o.ID] = *o
	s.numbers[o.OrderNumber] = o.ID
	return nil
}

func (s *state) GetOrder(_ context.Context, id string) (model.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return model.Order{}, fmt.Errorf("get order: %w", model.ErrNotFound)
	}
	return o, nil
}

func (s *state) LockOrder(ctx context.Context, id string) (model.Order, error) {
	return s.GetOrder(ctx, id)
}

func (s *state) ListOrders(_ context.Context, f repository.OrderFilter) ([]model.Order, error) {
	match := func(want, got string) bool { return want == "" || want == got }
	var out []model.Order
	for _, o := range s.orders {
		if match(f.BuyerID, o.BuyerID) &&
			match(f.MerchantID, o.MerchantID) &&
			match(f.BookingAgentID, o.BookingAgentID) &&
			match(f.ProductID, o.ProductID) &&
			match(string(f.Status), string(o.Status)) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *state) LockDueOrders(_ context.Context, before civil.Date, limit int) ([]model.Order, error) {
	var out []model.Order
	for _, o := range s.orders {
		if o.Status == model.OrderConfirmed && o.TravelDate.Before(before) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TravelDate != out[j].TravelDate {
			return out[i].TravelDate.Before(out[j].TravelDate)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *state) UpdateOrderStatus(_ context.Context, o *model.Order) error {
	cur, ok := s.orders[o.ID]
	if !ok {
		return fmt.Errorf("update order: %w", model.ErrNotFound)
	}
	cur.Status = o.Status
	cur.StockReleased = o.StockReleased
	cur.UpdatedAt = now()
	o.UpdatedAt = cur.UpdatedAt
	s.orders[o.ID] = cur
	return nil
}

func (s *state) CountOpenOrders(_ context.Context, productID string) (int, error) {
	n := 0
	for _, o := range s.orders {
		if o.ProductID == productID && o.Status.Open() {
			n++
		}
	}
	return n, nil
}
