// Package service is the inventory and workflow engine.  Every state
// change goes through here: the engine resolves the caller, asks the
// authorization guard, runs the workflow machine and persists the result in
// one transaction.  Events and cache invalidation follow the commit.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tour-marketplace/internal/authz"
	"github.com/iliyamo/tour-marketplace/internal/model"
	"github.com/iliyamo/tour-marketplace/internal/queue"
	"github.com/iliyamo/tour-marketplace/internal/repository"
)

// EventPublisher delivers order events after commit.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, ev queue.OrderEvent) error
}

// CalendarCache is a read-through cache for calendar ranges.
type CalendarCache interface {
	GetSchedules(ctx context.Context, productID string, from, to civil.Date) ([]model.PriceSchedule, string, bool, error)
	SetSchedules(ctx context.Context, productID, version string, from, to civil.Date, schedules []model.PriceSchedule) error
	Invalidate(ctx context.Context, productID string) error
}

// Engine wires the store to the guard and the workflow machines.  It holds
// no mutable state of its own and is safe for concurrent use.
type Engine struct {
	store   repository.Store
	log     *logrus.Logger
	pricing PricingPolicy
	events  EventPublisher
	cache   CalendarCache
	now     func() time.Time
	loc     *time.Location
	retries int
	backoff time.Duration
}

// Option customizes an Engine.
type Option func(*Engine)

// WithPricing replaces DefaultPricing.
func WithPricing(p PricingPolicy) Option { return func(e *Engine) { e.pricing = p } }

// WithPublisher enables order events.
func WithPublisher(p EventPublisher) Option { return func(e *Engine) { e.events = p } }

// WithCache enables the calendar cache.
func WithCache(c CalendarCache) Option { return func(e *Engine) { e.cache = c } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithLocation sets the business time zone used to decide what "today" is.
func WithLocation(loc *time.Location) Option { return func(e *Engine) { e.loc = loc } }

// WithMaxRetries bounds how often a transaction aborted by a lock
// conflict is re-run.
func WithMaxRetries(n int) Option { return func(e *Engine) { e.retries = n } }

// WithBackoff sets the base delay between conflict retries.
func WithBackoff(d time.Duration) Option { return func(e *Engine) { e.backoff = d } }

// New returns an Engine over store.
func New(store repository.Store, log *logrus.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		log:     log,
		pricing: DefaultPricing,
		now:     time.Now,
		loc:     time.UTC,
		retries: 3,
		backoff: 20 * time.Millisecond,
	}
	for _, o := range opts {
		o(e)
	}
	if e.retries < 0 {
		e.retries = 0
	}
	return e
}

// Today is the current calendar date in the business time zone.
func (e *Engine) Today() civil.Date { return model.DateIn(e.now(), e.loc) }

// inTx runs fn in a transaction and re-runs it when the database aborted
// it over a lock conflict.  fn must not keep results from a failed attempt.
func (e *Engine) inTx(ctx context.Context, op string, fn func(q repository.Queries) error) error {
	for attempt := 0; ; attempt++ {
		err := e.store.InTx(ctx, fn)
		if err == nil || !errors.Is(err, repository.ErrTxConflict) {
			return err
		}
		if attempt >= e.retries {
			e.log.WithError(err).WithFields(logrus.Fields{"op": op, "attempts": attempt + 1}).
				Warn("giving up after lock conflicts")
			return fmt.Errorf("%s: %w", op, model.ErrConflict)
		}
		e.log.WithError(err).WithFields(logrus.Fields{"op": op, "attempt": attempt + 1}).
			Warn("lock conflict, retrying")
		t := time.NewTimer(e.backoff * time.Duration(attempt+1))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// actor loads the caller.  Unknown ids are refused rather than reported as
// missing so that ids cannot be enumerated.
func (e *Engine) actor(ctx context.Context, q repository.Queries, id string) (authz.Actor, error) {
	if id == "" {
		return authz.Actor{}, model.Denied("no caller")
	}
	u, err := q.GetUser(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return authz.Actor{}, model.Denied("unknown caller")
	}
	if err != nil {
		return authz.Actor{}, err
	}
	return authz.ActorOf(u), nil
}

// managingAgent returns the agent managing buyerID, or "" when there is
// none or the buyer no longer exists.
func managingAgent(ctx context.Context, q repository.Queries, buyerID string) (string, error) {
	if buyerID == "" {
		return "", nil
	}
	u, err := q.GetUser(ctx, buyerID)
	if errors.Is(err, model.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return u.ManagingAgentID, nil
}

func newID() string { return uuid.NewString() }

// publish sends events best effort.  A broker failure never undoes a
// committed change.
func (e *Engine) publish(ctx context.Context, evs ...queue.OrderEvent) {
	if e.events == nil {
		return
	}
	for _, ev := range evs {
		if err := e.events.PublishOrderEvent(ctx, ev); err != nil {
			e.log.WithError(err).WithFields(logrus.Fields{"event": ev.Type, "order_id": ev.OrderID}).
				Warn("order event not published")
		}
	}
}

func (e *Engine) invalidate(ctx context.Context, productID string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx, productID); err != nil {
		e.log.WithError(err).WithField("product_id", productID).Warn("calendar cache not invalidated")
	}
}
