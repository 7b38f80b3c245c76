package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AlienServices/unfurl/internal/httpserver/deps"
)

// Group mounts a set of routes. Each file of this package registers
// its groups from init().
type Group func(r chi.Router, d deps.Deps)

// Guard builds a middleware from the deps, e.g. a CIDR check.
type Guard func(d deps.Deps) func(http.Handler) http.Handler

type group struct {
	name   string
	mount  Group
	guards []Guard
}

var groups []group

// Register adds a named route group behind optional guards.
func Register(name string, mount Group, guards ...Guard) {
	groups = append(groups, group{name: name, mount: mount, guards: guards})
}

// Names lists the registered groups in registration order.
func Names() []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.name)
	}
	return out
}

// RegisterAll mounts every group on r. Called once by NewRouter.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, g := range groups {
		if len(g.guards) == 0 {
			g.mount(r, d)
			continue
		}
		mws := make([]func(http.Handler) http.Handler, 0, len(g.guards))
		for _, guard := range g.guards {
			mws = append(mws, guard(d))
		}
		g.mount(r.With(mws...), d)
	}
}
