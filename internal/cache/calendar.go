// Package cache keeps calendar reads in Redis.  Entries are keyed by a
// per-product version number; writers bump the version instead of
// hunting down every cached range, and stale ranges simply expire.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/tour-marketplace/internal/model"
)

// Calendar caches ListSchedules results.
type Calendar struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewCalendar returns a cache writing under prefix with the given TTL.
func NewCalendar(rdb redis.Cmdable, prefix string, ttl time.Duration) *Calendar {
	if prefix == "" {
		prefix = "cache"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Calendar{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *Calendar) versionKey(productID string) string {
	return fmt.Sprintf("%s:cal:%s:v", c.prefix, productID)
}

func (c *Calendar) rangeKey(productID, version string, from, to civil.Date) string {
	return fmt.Sprintf("%s:cal:%s:%s:%s:%s", c.prefix, productID, version, from, to)
}

func (c *Calendar) version(ctx context.Context, productID string) (string, error) {
	v, err := c.rdb.Get(ctx, c.versionKey(productID)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return v, err
}

// GetSchedules returns the cached range and whether it was present, along
// with the version it was looked up under.  A fill after a miss must pass
// that version to SetSchedules so that an invalidation in between wins.
func (c *Calendar) GetSchedules(ctx context.Context, productID string, from, to civil.Date) ([]model.PriceSchedule, string, bool, error) {
	v, err := c.version(ctx, productID)
	if err != nil {
		return nil, "", false, fmt.Errorf("calendar version: %w", err)
	}
	bs, err := c.rdb.Get(ctx, c.rangeKey(productID, v, from, to)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, v, false, nil
	}
	if err != nil {
		return nil, v, false, fmt.Errorf("calendar get: %w", err)
	}
	var out []model.PriceSchedule
	if err := json.Unmarshal(bs, &out); err != nil {
		return nil, v, false, fmt.Errorf("calendar decode: %w", err)
	}
	return out, v, true, nil
}

// SetSchedules stores a range under version.  Once the product has been
// invalidated past that version the entry is never read.
func (c *Calendar) SetSchedules(ctx context.Context, productID, version string, from, to civil.Date, schedules []model.PriceSchedule) error {
	if schedules == nil {
		schedules = []model.PriceSchedule{}
	}
	bs, err := json.Marshal(schedules)
	if err != nil {
		return fmt.Errorf("calendar encode: %w", err)
	}
	return c.rdb.Set(ctx, c.rangeKey(productID, version, from, to), bs, c.ttl).Err()
}

// Invalidate makes every cached range of the product unreachable.
func (c *Calendar) Invalidate(ctx context.Context, productID string) error {
	if err := c.rdb.Incr(ctx, c.versionKey(productID)).Err(); err != nil {
		return fmt.Errorf("calendar invalidate: %w", err)
	}
	return nil
}
