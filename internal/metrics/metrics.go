// Package metrics exposes the Prometheus instruments of the preview engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "unfurl"

// Metrics holds the engine instruments. A nil *Metrics records nothing.
type Metrics struct {
	Requests        *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	StrategyResults *prometheus.CounterVec
	RateLimited     prometheus.Counter
	ResolveDuration *prometheus.HistogramVec
}

// New creates the instruments and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "preview_requests_total",
				Help:      "Preview requests by outcome",
			},
			[]string{"outcome"},
		),
		CacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Cache lookups by tier and result",
			},
			[]string{"tier", "result"},
		),
		StrategyResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "strategy_results_total",
				Help:      "Resolver strategy attempts by platform, strategy and result",
			},
			[]string{"platform", "strategy", "result"},
		),
		RateLimited: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
		),
		ResolveDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolve_duration_seconds",
				Help:      "Time spent resolving uncached previews",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30},
			},
			[]string{"platform"},
		),
	}
}

func (m *Metrics) Request(outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CacheLookup(tier string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(tier, result).Inc()
}

// Strategy records one strategy attempt; result is "ok", "empty" or "error".
func (m *Metrics) Strategy(platform, strategy, result string) {
	if m == nil {
		return
	}
	m.StrategyResults.WithLabelValues(platform, strategy, result).Inc()
}

func (m *Metrics) Limited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

func (m *Metrics) ObserveResolve(platform string, d time.Duration) {
	if m == nil {
		return
	}
	m.ResolveDuration.WithLabelValues(platform).Observe(d.Seconds())
}
