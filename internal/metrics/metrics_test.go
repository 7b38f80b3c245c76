package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Request("ok")
	m.Request("ok")
	m.CacheLookup("preview", true)
	m.CacheLookup("preview", false)
	m.Strategy("x", "oembed", "error")
	m.Limited()
	m.ObserveResolve("generic", 250*time.Millisecond)

	if got := testutil.ToFloat64(m.Requests.WithLabelValues("ok")); got != 2 {
		t.Errorf("requests{ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("preview", "hit")); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.StrategyResults.WithLabelValues("x", "oembed", "error")); got != 1 {
		t.Errorf("strategy errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RateLimited); got != 1 {
		t.Errorf("rate limited = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.ResolveDuration); n != 1 {
		t.Errorf("resolve duration series = %d, want 1", n)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Request("ok")
	m.CacheLookup("preview", true)
	m.Strategy("x", "api", "ok")
	m.Limited()
	m.ObserveResolve("x", time.Second)
}
