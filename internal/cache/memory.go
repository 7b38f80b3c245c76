package cache

import (
	"context"
	"sync"
	"time"
)

type MemoryConfig struct {
	TTL        time.Duration
	MaxEntries int
	// SweepInterval bounds how often expired entries are dropped on access.
	SweepInterval time.Duration
	Now           func() time.Time
}

// Memory is a process-local Cache. Expired entries are removed lazily on
// access; when MaxEntries is reached the oldest entry is evicted.
type Memory[T any] struct {
	cfg       MemoryConfig
	mu        sync.Mutex
	entries   map[string]Entry[T]
	lastSweep time.Time
}

func NewMemory[T any](cfg MemoryConfig) *Memory[T] {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Memory[T]{
		cfg:       cfg,
		entries:   make(map[string]Entry[T], 256),
		lastSweep: cfg.Now(),
	}
}

func (m *Memory[T]) Get(_ context.Context, key string) (T, bool, error) {
	now := m.cfg.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepMaybeLocked(now)

	e, ok := m.entries[key]
	if !ok {
		var zero T
		return zero, false, nil
	}
	if !e.Valid(now, m.cfg.TTL) {
		delete(m.entries, key)
		var zero T
		return zero, false, nil
	}
	return e.Data, true, nil
}

func (m *Memory[T]) Set(_ context.Context, key string, value T) error {
	now := m.cfg.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepMaybeLocked(now)

	if _, exists := m.entries[key]; !exists && m.cfg.MaxEntries > 0 && len(m.entries) >= m.cfg.MaxEntries {
		m.sweepLocked(now)
		if len(m.entries) >= m.cfg.MaxEntries {
			m.evictOldestLocked()
		}
	}
	m.entries[key] = Entry[T]{Data: value, Timestamp: now}
	return nil
}

func (m *Memory[T]) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := m.Get(ctx, key)
	return ok, err
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep drops expired entries and returns how many were removed.
func (m *Memory[T]) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(m.cfg.Now())
}

func (m *Memory[T]) sweepLocked(now time.Time) int {
	removed := 0
	for k, e := range m.entries {
		if !e.Valid(now, m.cfg.TTL) {
			delete(m.entries, k)
			removed++
		}
	}
	m.lastSweep = now
	return removed
}

func (m *Memory[T]) sweepMaybeLocked(now time.Time) {
	if now.Sub(m.lastSweep) >= m.cfg.SweepInterval {
		m.sweepLocked(now)
	}
}

func (m *Memory[T]) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for k, e := range m.entries {
		if !found || e.Timestamp.Before(oldest) {
			oldestKey, oldest, found = k, e.Timestamp, true
		}
	}
	if found {
		delete(m.entries, oldestKey)
	}
}
