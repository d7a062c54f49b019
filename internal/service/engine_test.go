package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tour-marketplace/internal/model"
	"github.com/iliyamo/tour-marketplace/internal/queue"
	"github.com/iliyamo/tour-marketplace/internal/repository"
	"github.com/iliyamo/tour-marketplace/internal/repository/memstore"
)

var (
	now        = time.Date(2025, time.August, 1, 10, 0, 0, 0, time.UTC)
	travelDate = civil.Date{Year: 2025, Month: time.September, Day: 1}
	hundred    = decimal.NewFromInt(100)
)

type recorder struct {
	mu  sync.Mutex
	evs []queue.OrderEvent
	err error
}

func (r *recorder) PublishOrderEvent(_ context.Context, ev queue.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, ev)
	return r.err
}

func (r *recorder) types() []queue.OrderEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.OrderEventType, 0, len(r.evs))
	for _, ev := range r.evs {
		out = append(out, ev.Type)
	}
	return out
}

// flakyStore fails the first n transactions with a lock conflict.
type flakyStore struct {
	*memstore.Store
	n int32
}

func (f *flakyStore) InTx(ctx context.Context, fn func(q repository.Queries) error) error {
	if atomic.AddInt32(&f.n, -1) >= 0 {
		return fmt.Errorf("commit tx: %w", repository.ErrTxConflict)
	}
	return f.Store.InTx(ctx, fn)
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memstore.Store
	eng   *Engine
	log   *test.Hook
	pub   *recorder

	admin, merchant, rival, agent, customer, loner model.User
	product                                        model.Product
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return newFixtureOn(t, memstore.New(), nil, opts...)
}

// newFixtureOn builds the fixture on mem; when wrapped is set the engine
// runs on wrapped while the setup still goes through mem directly.
func newFixtureOn(t *testing.T, mem *memstore.Store, wrapped repository.Store, opts ...Option) *fixture {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	f := &fixture{t: t, ctx: context.Background(), store: mem, log: hook, pub: &recorder{}}

	base := []Option{
		WithClock(func() time.Time { return now }),
		WithPublisher(f.pub),
		WithBackoff(time.Millisecond),
	}
	setup := New(mem, log, base...)
	var target repository.Store = mem
	if wrapped != nil {
		target = wrapped
	}
	f.eng = New(target, log, append(base, opts...)...)

	f.admin = f.user("admin@x.io", model.RoleAdmin, model.UserApproved, "")
	f.merchant = f.user("m1@x.io", model.RoleMerchant, model.UserApproved, "")
	f.rival = f.user("m2@x.io", model.RoleMerchant, model.UserApproved, "")
	f.agent = f.user("agent@x.io", model.RoleAgent, model.UserApproved, "")
	f.customer = f.user("c1@x.io", model.RoleCustomer, model.UserApproved, f.agent.ID)
	f.loner = f.user("c2@x.io", model.RoleCustomer, model.UserApproved, "")

	p, err := setup.CreateProduct(f.ctx, f.merchant.ID, ProductInput{
		Title:     model.LocalizedText{ZH: "长城一日游", EN: "Great Wall day trip"},
		BasePrice: hundred,
	})
	require.NoError(t, err)
	_, err = setup.SubmitProduct(f.ctx, f.merchant.ID, p.ID)
	require.NoError(t, err)
	f.product, err = setup.ApproveProduct(f.ctx, f.admin.ID, p.ID)
	require.NoError(t, err)
	f.pub.evs = nil
	return f
}

func (f *fixture) user(email string, role model.Role, status model.UserStatus, agentID string) model.User {
	f.t.Helper()
	u := model.User{ID: email, Email: email, Name: email, Role: role, Status: status, ManagingAgentID: agentID}
	require.NoError(f.t, f.store.CreateUser(f.ctx, &u))
	return u
}

func (f *fixture) stock(total int) {
	f.t.Helper()
	_, err := f.eng.UpsertSchedule(f.ctx, f.merchant.ID, f.product.ID, travelDate, hundred, total)
	require.NoError(f.t, err)
}

func (f *fixture) reserved() int {
	f.t.Helper()
	ps, err := f.store.GetSchedule(f.ctx, f.product.ID, travelDate)
	require.NoError(f.t, err)
	return ps.ReservedStock
}

func (f *fixture) book(actorID, buyerID string, adults int) (model.Order, error) {
	return f.eng.Reserve(f.ctx, actorID, BookingRequest{
		ProductID:  f.product.ID,
		TravelDate: travelDate,
		Party:      model.PartySize{Adults: adults},
		BuyerID:    buyerID,
	})
}

func TestConflictIsRetried(t *testing.T) {
	mem := memstore.New()
	flaky := &flakyStore{Store: mem}
	f := newFixtureOn(t, mem, flaky, WithMaxRetries(3))
	f.stock(5)

	atomic.StoreInt32(&flaky.n, 2)
	o, err := f.book(f.customer.ID, "", 2)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, o.Status)
	assert.Equal(t, 2, f.reserved())

	warnings := 0
	for _, e := range f.log.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "lock conflict, retrying" {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings)
}

func TestConflictRetriesRunOut(t *testing.T) {
	mem := memstore.New()
	flaky := &flakyStore{Store: mem}
	f := newFixtureOn(t, mem, flaky, WithMaxRetries(2))
	f.stock(5)

	atomic.StoreInt32(&flaky.n, 10)
	_, err := f.book(f.customer.ID, "", 2)
	assert.ErrorIs(t, err, model.ErrConflict)
	assert.Equal(t, int32(10-3), atomic.LoadInt32(&flaky.n))
	assert.Equal(t, 0, f.reserved())
}

func TestPublishFailureDoesNotFailTheOperation(t *testing.T) {
	f := newFixture(t)
	f.stock(5)
	f.pub.err = fmt.Errorf("broker down")

	o, err := f.book(f.customer.ID, "", 1)
	require.NoError(t, err)

	var warns []*logrus.Entry
	for _, e := range f.log.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warns = append(warns, e)
		}
	}
	require.Len(t, warns, 1, "one failure, one line")
	assert.Equal(t, "order event not published", warns[0].Message)
	assert.Equal(t, o.ID, warns[0].Data["order_id"])
	assert.Equal(t, queue.OrderCreated, warns[0].Data["event"])
}

func TestTodayUsesBusinessZone(t *testing.T) {
	late := time.Date(2025, time.August, 31, 20, 0, 0, 0, time.UTC)
	shanghai := time.FixedZone("CST", 8*3600)
	e := New(memstore.New(), logrus.New(), WithClock(func() time.Time { return late }), WithLocation(shanghai))
	assert.Equal(t, civil.Date{Year: 2025, Month: time.September, Day: 1}, e.Today())
}

func TestDefaultPricing(t *testing.T) {
	party := model.PartySize{Adults: 2, ChildrenWithBed: 1, ChildrenNoBed: 1, Infants: 1}
	got := totalPrice(DefaultPricing, decimal.RequireFromString("99.995"), party)
	assert.Equal(t, "399.98", got.StringFixed(2))

	half := WeightedPricing{Adult: decimal.NewFromInt(1), ChildNoBed: decimal.RequireFromString("0.5")}
	got = totalPrice(half, hundred, model.PartySize{Adults: 1, ChildrenNoBed: 1})
	assert.Equal(t, "150.00", got.StringFixed(2))
}
