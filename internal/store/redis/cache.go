package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AlienServices/unfurl/internal/cache"
	"github.com/redis/go-redis/v9"
)

// Cache is a cache.Cache backed by Redis. Values are stored as JSON
// entries and expire through the key TTL.
type Cache[T any] struct {
	client redis.Cmdable
	tier   string
	ttl    time.Duration
	now    func() time.Time
}

// NewCache creates a Redis cache for one tier ("preview", "platform").
func NewCache[T any](client redis.Cmdable, tier string, ttl time.Duration) *Cache[T] {
	return &Cache[T]{client: client, tier: tier, ttl: ttl, now: time.Now}
}

func (c *Cache[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T

	data, err := c.client.Get(ctx, CacheKey(c.tier, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("failed to get cache entry: %w", err)
	}

	var entry cache.Entry[T]
	if err := json.Unmarshal(data, &entry); err != nil {
		return zero, false, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	if !entry.Valid(c.now(), c.ttl) {
		return zero, false, nil
	}
	return entry.Data, true, nil
}

func (c *Cache[T]) Set(ctx context.Context, key string, value T) error {
	data, err := json.Marshal(cache.Entry[T]{Data: value, Timestamp: c.now()})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := c.client.Set(ctx, CacheKey(c.tier, key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cache entry: %w", err)
	}
	return nil
}

func (c *Cache[T]) Has(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, CacheKey(c.tier, key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check cache entry: %w", err)
	}
	return n > 0, nil
}
