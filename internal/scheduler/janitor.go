// Package scheduler runs periodic housekeeping for the in-memory backends.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/AlienServices/unfurl/internal/logger"
)

// DefaultInterval is used when NewJanitor gets a non-positive interval.
const DefaultInterval = time.Minute

// Sweeper drops expired state and reports how many entries it removed.
type Sweeper interface {
	Sweep() int
}

// Janitor sweeps the registered in-memory caches and limiters on a ticker
// so idle keys do not pile up between requests.
type Janitor struct {
	targets  map[string]Sweeper
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewJanitor(log logger.Logger, interval time.Duration, targets map[string]Sweeper) *Janitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Janitor{
		targets:  targets,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs sweeps in the background until Stop is called or ctx ends.
func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				j.Collect()
			case <-j.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop is safe to call more than once.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
}

// Collect sweeps every target once and returns the total removed.
func (j *Janitor) Collect() int {
	total := 0
	fields := make([]logger.Field, 0, len(j.targets)+1)
	for name, t := range j.targets {
		n := t.Sweep()
		total += n
		fields = append(fields, logger.Int(name, n))
	}

	if total > 0 {
		fields = append(fields, logger.Int("total_removed", total))
		j.logger.Debug("expired entries swept", fields...)
	}
	return total
}
