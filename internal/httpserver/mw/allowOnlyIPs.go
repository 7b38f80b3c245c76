package mw

import (
	"net/http"

	"github.com/AlienServices/unfurl/internal/logger"
	"github.com/AlienServices/unfurl/internal/utils"
)

// AllowOnlyCIDRS restricts a route to the given IPs and CIDRs. An empty
// list means no filtering. trustProxy makes the client IP come from
// X-Forwarded-For, for deployments behind a reverse proxy or tunnel.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	m := utils.NewIPMatcher(allowed)
	if m.IsEmpty() {
		log.Debug("AllowOnlyCIDRS: empty matcher, passthrough mode")
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if !m.Allow(ip) {
				log.Info("restricted endpoint rejected client",
					logger.String("path", r.URL.Path),
					logger.String("client_ip", ip))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"Forbidden"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
