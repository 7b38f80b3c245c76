package handlers

import (
	"net/http"

	"github.com/AlienServices/unfurl/internal/httpserver/deps"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics serves the Prometheus exposition of d.Registry.
func Metrics(d deps.Deps) http.Handler {
	g := d.Registry
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
