package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AlienServices/unfurl/internal/cache"
	"github.com/AlienServices/unfurl/internal/logger"
	"github.com/AlienServices/unfurl/internal/ratelimit"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestJanitorCollect(t *testing.T) {
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	ctx := context.Background()

	previews := cache.NewMemory[string](cache.MemoryConfig{TTL: time.Minute, SweepInterval: time.Hour, Now: clk.Now})
	limiter := ratelimit.NewMemory(ratelimit.Config{Limit: 5, Window: time.Minute, SweepInterval: time.Hour, Now: clk.Now})

	_ = previews.Set(ctx, "a", "1")
	_ = previews.Set(ctx, "b", "2")
	_, _ = limiter.Allow(ctx, "203.0.113.9")

	j := NewJanitor(logger.NewNop(), time.Hour, map[string]Sweeper{
		"preview_cache": previews,
		"rate_limiter":  limiter,
	})

	if got := j.Collect(); got != 0 {
		t.Fatalf("Collect() before expiry = %d, want 0", got)
	}

	clk.now = clk.now.Add(2 * time.Minute)
	_ = previews.Set(ctx, "c", "3")

	if got := j.Collect(); got != 3 {
		t.Errorf("Collect() after expiry = %d, want 3", got)
	}
	if previews.Len() != 1 || limiter.Len() != 0 {
		t.Errorf("left previews=%d limiter=%d, want 1 and 0", previews.Len(), limiter.Len())
	}
}

type countingSweeper struct{ calls atomic.Int32 }

func (c *countingSweeper) Sweep() int {
	c.calls.Add(1)
	return 0
}

func TestJanitorStartStop(t *testing.T) {
	s := &countingSweeper{}
	j := NewJanitor(logger.NewNop(), 5*time.Millisecond, map[string]Sweeper{"s": s})

	j.Start(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for s.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	j.Stop()
	j.Stop()

	if s.calls.Load() < 2 {
		t.Fatalf("sweeps = %d, want at least 2", s.calls.Load())
	}
}

func TestNewJanitorDefaultInterval(t *testing.T) {
	if j := NewJanitor(logger.NewNop(), 0, nil); j.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", j.interval, DefaultInterval)
	}
}
