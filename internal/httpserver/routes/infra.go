package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AlienServices/unfurl/internal/httpserver/deps"
	"github.com/AlienServices/unfurl/internal/httpserver/handlers"
	"github.com/AlienServices/unfurl/internal/httpserver/mw"
)

func init() { Register("infra", registerInfra, cidrGuard) }

func cidrGuard(d deps.Deps) func(http.Handler) http.Handler {
	return mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)
}

func registerInfra(r chi.Router, d deps.Deps) {
	r.Get("/infra", handlers.Infra(d))
	r.Method(http.MethodGet, "/metrics", handlers.Metrics(d))
}
