package cache

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

	"github.com/iliyamo/tour-marketplace/internal/model"
)

func newCalendar(t *testing.T) (*Calendar, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCalendar(rdb, "test", time.Minute), mr
}

var (
	from = civil.Date{Year: 2025, Month: time.September, Day: 1}
	to   = civil.Date{Year: 2025, Month: time.September, Day: 30}
)

func TestCalendarMissThenHit(t *testing.T) {
	c, _ := newCalendar(t)
	ctx := context.Background()

	_, v, ok, err := c.GetSchedules(ctx, "p1", from, to)
	require.NoError(t, err)
	assert.False(t, ok)

	in := []model.PriceSchedule{{ProductID: "p1", TravelDate: from, Price: decimal.RequireFromString("99.50"), TotalStock: 10, ReservedStock: 2}}
	require.NoError(t, c.SetSchedules(ctx, "p1", v, from, to, in))

	out, _, ok, err := c.GetSchedules(ctx, "p1", from, to)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, out, 1)
	assert.Equal(t, from, out[0].TravelDate)
	assert.Equal(t, 8, out[0].Available())
	assert.True(t, out[0].Price.Equal(in[0].Price))
}

func TestCalendarInvalidate(t *testing.T) {
	c, _ := newCalendar(t)
	ctx := context.Background()

	require.NoError(t, c.SetSchedules(ctx, "p1", "0", from, to, nil))
	require.NoError(t, c.SetSchedules(ctx, "p2", "0", from, to, nil))
	require.NoError(t, c.Invalidate(ctx, "p1"))

	_, _, ok, err := c.GetSchedules(ctx, "p1", from, to)
	require.NoError(t, err)
	assert.False(t, ok)

	out, _, ok, err := c.GetSchedules(ctx, "p2", from, to)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, out)
}

func TestCalendarEntriesExpire(t *testing.T) {
	c, mr := newCalendar(t)
	ctx := context.Background()

	require.NoError(t, c.SetSchedules(ctx, "p1", "0", from, to, nil))
	mr.FastForward(2 * time.Minute)

	_, _, ok, err := c.GetSchedules(ctx, "p1", from, to)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCalendarRedisDown(t *testing.T) {
	c, mr := newCalendar(t)
	mr.Close()

	_, _, ok, err := c.GetSchedules(context.Background(), "p1", from, to)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestCalendarFillAfterInvalidateIsUnreachable(t *testing.T) {
	c, _ := newCalendar(t)
	ctx := context.Background()

	_, v, ok, err := c.GetSchedules(ctx, "p1", from, to)
	require.NoError(t, err)
	require.False(t, ok)

	// a writer commits and invalidates while the miss is being filled
	require.NoError(t, c.Invalidate(ctx, "p1"))
	stale := []model.PriceSchedule{{ProductID: "p1", TravelDate: from, TotalStock: 10}}
	require.NoError(t, c.SetSchedules(ctx, "p1", v, from, to, stale))

	_, next, ok, err := c.GetSchedules(ctx, "p1", from, to)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotEqual(t, v, next)
}
