package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/AlienServices/unfurl/internal/httpserver/deps"
	"github.com/AlienServices/unfurl/internal/httpserver/handlers"
)

func init() { Register("preview", registerPreview) }

func registerPreview(r chi.Router, d deps.Deps) {
	r.Post("/api/preview", handlers.Preview(d))
}
