// Package cache holds the read-through preview caches.
package cache

import (
	"context"
	"time"
)

// Cache stores values of T under string keys with a tier-wide TTL.
// A miss is (zero, false, nil); an error means the backend failed.
type Cache[T any] interface {
	Get(ctx context.Context, key string) (T, bool, error)
	Set(ctx context.Context, key string, value T) error
	Has(ctx context.Context, key string) (bool, error)
}

// Entry is one cached value and when it was stored.
type Entry[T any] struct {
	Data      T         `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Valid reports whether the entry is younger than ttl at now.
func (e Entry[T]) Valid(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.Timestamp) < ttl
}
