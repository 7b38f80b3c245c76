package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/AlienServices/unfurl/internal/httpserver/deps"
)

type componentStatus struct {
	OK     bool   `json:"ok"`
	Mode   string `json:"mode,omitempty"`
	Impact string `json:"impact,omitempty"`
	Error  string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Backend    string                     `json:"backend"`
	RateLimit  rateLimitInfo              `json:"rate_limit"`
	Upstreams  upstreamInfo               `json:"upstreams"`
	Components map[string]componentStatus `json:"components"`
}

type rateLimitInfo struct {
	Limit  int    `json:"limit"`
	Window string `json:"window"`
}

type upstreamInfo struct {
	PublicOrigin string `json:"public_origin"`
	YouTubeAPI   bool   `json:"youtube_api"`
	XAPI         bool   `json:"x_api"`
	RulesFile    string `json:"rules_file,omitempty"`
}

// Infra describes the configured backends and upstream integrations.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"redis":   checkRedis(r.Context(), d),
			"youtube": apiStatus(d.Upstreams.YouTubeAPI),
			"x":       apiStatus(d.Upstreams.XAPI),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:      determineMode(components),
			Backend:   d.Backend,
			RateLimit: rateLimitInfo{Limit: d.RateLimit, Window: d.RateWindow.String()},
			Upstreams: upstreamInfo{
				PublicOrigin: d.Upstreams.PublicOrigin,
				YouTubeAPI:   d.Upstreams.YouTubeAPI,
				XAPI:         d.Upstreams.XAPI,
				RulesFile:    d.Upstreams.RulesFile,
			},
			Components: components,
		})
	}
}

func apiStatus(configured bool) componentStatus {
	if configured {
		return componentStatus{OK: true, Mode: "api"}
	}
	return componentStatus{OK: true, Mode: "scrape", Impact: "api-strategy-skipped"}
}

// determineMode is "degraded" when a configured backend is unreachable.
func determineMode(components map[string]componentStatus) string {
	for _, c := range components {
		if !c.OK {
			return "degraded"
		}
	}
	return "optimal"
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{OK: true, Mode: "disabled", Impact: "in-memory-cache-and-limiter"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "cache-misses-and-open-rate-limit",
			Error:  err.Error(),
		}
	}
	return componentStatus{OK: true, Mode: "shared"}
}
