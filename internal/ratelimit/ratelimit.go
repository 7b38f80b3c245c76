// Package ratelimit implements the fixed-window limiter applied to
// preview requests, keyed by client id.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryIn is how long a rejected client must wait, at least one second.
func (d Decision) RetryIn(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now)
	if wait < time.Second {
		wait = time.Second
	}
	return wait
}

// Limiter decides whether the client identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type Config struct {
	Limit  int
	Window time.Duration
	// MaxEntries triggers a sweep of expired windows when reached.
	MaxEntries    int
	SweepInterval time.Duration
	Now           func() time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// Memory is a process-local fixed-window limiter. The count of a window
// never exceeds Limit: rejected requests are not counted.
type Memory struct {
	cfg       Config
	mu        sync.Mutex
	windows   map[string]*window
	lastSweep time.Time
}

func NewMemory(cfg Config) *Memory {
	if cfg.Limit < 1 {
		cfg.Limit = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = cfg.Window
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Memory{
		cfg:       cfg,
		windows:   make(map[string]*window, 1024),
		lastSweep: cfg.Now(),
	}
}

func (l *Memory) Allow(_ context.Context, key string) (Decision, error) {
	now := l.cfg.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.cfg.SweepInterval ||
		(l.cfg.MaxEntries > 0 && len(l.windows) >= l.cfg.MaxEntries) {
		l.sweepLocked(now)
	}

	w := l.windows[key]
	if w == nil || !now.Before(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(l.cfg.Window)}
		l.windows[key] = w
		return Decision{Allowed: true, Limit: l.cfg.Limit, Remaining: l.cfg.Limit - 1, ResetAt: w.resetAt}, nil
	}

	if w.count >= l.cfg.Limit {
		return Decision{Allowed: false, Limit: l.cfg.Limit, Remaining: 0, ResetAt: w.resetAt}, nil
	}

	w.count++
	return Decision{Allowed: true, Limit: l.cfg.Limit, Remaining: l.cfg.Limit - w.count, ResetAt: w.resetAt}, nil
}

// Sweep forgets clients whose window has closed and returns how many.
func (l *Memory) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(l.cfg.Now())
}

func (l *Memory) sweepLocked(now time.Time) int {
	removed := 0
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
			removed++
		}
	}
	l.lastSweep = now
	return removed
}

// Len returns the number of tracked clients.
func (l *Memory) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
