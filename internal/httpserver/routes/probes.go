package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/AlienServices/unfurl/internal/httpserver/deps"
	"github.com/AlienServices/unfurl/internal/httpserver/handlers"
)

func init() { Register("probes", registerProbes) }

// Probes stay open to orchestrators; only /infra and /metrics are restricted.
func registerProbes(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))
	r.Get("/readyz", handlers.Readyz(d))
}
