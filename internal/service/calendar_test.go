package service

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tour-marketplace/internal/cache"
	"github.com/iliyamo/tour-marketplace/internal/model"
	"github.com/iliyamo/tour-marketplace/internal/repository/memstore"
)

func sep(day int) civil.Date { return civil.Date{Year: 2025, Month: time.September, Day: day} }

func TestUpsertRoundTrip(t *testing.T) {
	f := newFixture(t)
	price := decimal.RequireFromString("1280.50")

	ps, err := f.eng.UpsertSchedule(f.ctx, f.merchant.ID, f.product.ID, travelDate, price, 12)
	require.NoError(t, err)
	assert.Equal(t, 12, ps.Available())

	got, err := f.eng.GetSchedule(f.ctx, f.product.ID, travelDate)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(price))
	assert.Equal(t, 12, got.TotalStock)
	assert.Equal(t, 0, got.ReservedStock)
	assert.Equal(t, travelDate, got.TravelDate)
}

func TestCapacityBelowReservedLeavesRowUnchanged(t *testing.T) {
	f := newFixture(t)
	f.stock(5)
	_, err := f.book(f.customer.ID, "", 3)
	require.NoError(t, err)

	_, err = f.eng.UpsertSchedule(f.ctx, f.merchant.ID, f.product.ID, travelDate, decimal.NewFromInt(1), 2)
	assert.ErrorIs(t, err, model.ErrCapacityBelowReserved)

	got, err := f.eng.GetSchedule(f.ctx, f.product.ID, travelDate)
	require.NoError(t, err)
	assert.Equal(t, 5, got.TotalStock)
	assert.Equal(t, 3, got.ReservedStock)
	assert.True(t, got.Price.Equal(hundred))

	ps, err := f.eng.UpsertSchedule(f.ctx, f.merchant.ID, f.product.ID, travelDate, hundred, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, ps.Available())
	assert.Equal(t, 3, ps.ReservedStock)
}

func TestBatchUpsertIsAtomic(t *testing.T) {
	f := newFixture(t)
	f.stock(5)
	_, err := f.book(f.customer.ID, "", 4)
	require.NoError(t, err)

	_, err = f.eng.UpsertSchedules(f.ctx, f.merchant.ID, BatchUpsert{
		ProductID: f.product.ID,
		Schedules: []ScheduleInput{
			{Date: sep(2), Price: hundred, Stock: 10},
			{Date: travelDate, Price: hundred, Stock: 1},
		},
	})
	assert.ErrorIs(t, err, model.ErrCapacityBelowReserved)
	_, err = f.eng.GetSchedule(f.ctx, f.product.ID, sep(2))
	assert.ErrorIs(t, err, model.ErrNotFound, "first day must be rolled back")

	out, err := f.eng.UpsertSchedules(f.ctx, f.merchant.ID, BatchUpsert{
		ProductID: f.product.ID,
		Schedules: []ScheduleInput{
			{Date: sep(2), Price: hundred, Stock: 10},
			{Date: sep(3), Price: hundred, Stock: 10},
		},
	})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestUpsertValidationAndOwnership(t *testing.T) {
	f := newFixture(t)

	_, err := f.eng.UpsertSchedule(f.ctx, f.merchant.ID, f.product.ID, travelDate, decimal.NewFromInt(-1), 5)
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = f.eng.UpsertSchedule(f.ctx, f.merchant.ID, f.product.ID, travelDate, hundred, -5)
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = f.eng.UpsertSchedules(f.ctx, f.merchant.ID, BatchUpsert{
		ProductID: f.product.ID,
		Schedules: []ScheduleInput{{Date: sep(2), Stock: 1}, {Date: sep(2), Stock: 2}},
	})
	assert.ErrorIs(t, err, model.ErrValidation, "duplicate date")
	_, err = f.eng.UpsertSchedules(f.ctx, f.merchant.ID, BatchUpsert{ProductID: f.product.ID})
	assert.ErrorIs(t, err, model.ErrValidation, "empty batch")

	_, err = f.eng.UpsertSchedule(f.ctx, f.rival.ID, f.product.ID, travelDate, hundred, 5)
	assert.ErrorIs(t, err, model.ErrDenied)
	_, err = f.eng.UpsertSchedule(f.ctx, f.admin.ID, f.product.ID, travelDate, hundred, 5)
	assert.ErrorIs(t, err, model.ErrDenied)
	_, err = f.eng.UpsertSchedule(f.ctx, f.merchant.ID, "nope", travelDate, hundred, 5)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestListSchedules(t *testing.T) {
	f := newFixture(t)
	for _, d := range []int{5, 1, 3} {
		_, err := f.eng.UpsertSchedule(f.ctx, f.merchant.ID, f.product.ID, sep(d), hundred, d)
		require.NoError(t, err)
	}

	out, err := f.eng.ListSchedules(f.ctx, f.product.ID, sep(1), sep(3))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, sep(1), out[0].TravelDate)
	assert.Equal(t, sep(3), out[1].TravelDate)

	out, err = f.eng.ListSchedules(f.ctx, f.product.ID, sep(6), sep(9))
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)

	_, err = f.eng.ListSchedules(f.ctx, f.product.ID, sep(3), sep(1))
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = f.eng.ListSchedules(f.ctx, "nope", sep(1), sep(3))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestListSchedulesThroughCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	f := newFixture(t, WithCache(cache.NewCalendar(rdb, "t", time.Minute)))
	f.stock(5)

	first, err := f.eng.ListSchedules(f.ctx, f.product.ID, sep(1), sep(30))
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 5, first[0].Available())

	_, err = f.book(f.customer.ID, "", 2)
	require.NoError(t, err)

	again, err := f.eng.ListSchedules(f.ctx, f.product.ID, sep(1), sep(30))
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, 3, again[0].Available(), "reservation must invalidate the cached range")
}

// slowCalendarStore runs afterRead once, between reading a calendar range
// and handing it back, standing in for a write that commits meanwhile.
type slowCalendarStore struct {
	*memstore.Store
	afterRead func()
}

func (s *slowCalendarStore) ListSchedules(ctx context.Context, productID string, from, to civil.Date) ([]model.PriceSchedule, error) {
	out, err := s.Store.ListSchedules(ctx, productID, from, to)
	if s.afterRead != nil {
		hook := s.afterRead
		s.afterRead = nil
		hook()
	}
	return out, err
}

func TestListSchedulesFillLosesToConcurrentWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mem := memstore.New()
	slow := &slowCalendarStore{Store: mem}
	f := newFixtureOn(t, mem, slow, WithCache(cache.NewCalendar(rdb, "t", time.Minute)))
	f.stock(5)

	slow.afterRead = func() {
		_, err := f.book(f.customer.ID, "", 2)
		require.NoError(t, err)
	}
	stale, err := f.eng.ListSchedules(f.ctx, f.product.ID, sep(1), sep(30))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, 5, stale[0].Available())

	fresh, err := f.eng.ListSchedules(f.ctx, f.product.ID, sep(1), sep(30))
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, 3, fresh[0].Available(), "a range read before the booking must not be served after it")
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	f.stock(4)

	cases := []struct {
		name      string
		product   string
		date      civil.Date
		count     int
		want      model.AvailabilityResult
		available int
	}{
		{"fits", f.product.ID, travelDate, 4, model.AvailabilityOK, 4},
		{"too many", f.product.ID, travelDate, 5, model.AvailabilityInsufficient, 4},
		{"no row", f.product.ID, sep(2), 1, model.AvailabilityNoSuchDate, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.eng.CheckAvailability(f.ctx, tc.product, tc.date, tc.count)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Result)
			assert.Equal(t, tc.available, got.Available)
		})
	}

	_, err := f.eng.CheckAvailability(f.ctx, f.product.ID, travelDate, 0)
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = f.eng.CheckAvailability(f.ctx, "nope", travelDate, 1)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = f.eng.EditProduct(f.ctx, f.merchant.ID, f.product.ID, ProductInput{Title: model.LocalizedText{EN: "x"}})
	require.NoError(t, err)
	got, err := f.eng.CheckAvailability(f.ctx, f.product.ID, travelDate, 1)
	require.NoError(t, err)
	assert.Equal(t, model.AvailabilityProductNotApproved, got.Result)
}
