package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"studiodesk/internal/models"
)

// Cache is an optional Redis-backed cache of resolved DayAvailability values.
// Staleness is handled by explicit invalidation on every schedule write, not
// by expiry alone: a stale "open" answer must never be served after a closure
// is added. The TTL is only a backstop against missed invalidations.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache creates a cache. A nil client disables caching entirely.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func cacheKey(staffID *int64, date time.Time) string {
	scope := "studio"
	if staffID != nil {
		scope = fmt.Sprintf("staff:%d", *staffID)
	}
	return fmt.Sprintf("availability:%s:%s", scope, date.Format("2006-01-02"))
}

// Get returns the cached value for the scope/date, if present.
func (c *Cache) Get(ctx context.Context, staffID *int64, date time.Time) (*models.DayAvailability, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	val, err := c.rdb.Get(ctx, cacheKey(staffID, date)).Result()
	if err != nil {
		return nil, false
	}
	var day models.DayAvailability
	if err := json.Unmarshal([]byte(val), &day); err != nil {
		return nil, false
	}
	return &day, true
}

// Put stores a resolved value.
func (c *Cache) Put(ctx context.Context, staffID *int64, day models.DayAvailability) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(day)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, cacheKey(staffID, day.Date), data, c.ttl).Err()
}

// InvalidateScope drops every cached day for the staff scope. Called on any
// write to business hours, closures or lunch settings.
func (c *Cache) InvalidateScope(ctx context.Context, staffID *int64) {
	if c == nil || c.rdb == nil {
		return
	}
	scope := "studio"
	if staffID != nil {
		scope = fmt.Sprintf("staff:%d", *staffID)
	}
	pattern := fmt.Sprintf("availability:%s:*", scope)
	iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		_ = c.rdb.Del(ctx, iter.Val()).Err()
	}
}
