package deps

import (
	"context"
	"time"

	"github.com/AlienServices/unfurl/internal/domain"
	"github.com/AlienServices/unfurl/internal/engine"
	"github.com/AlienServices/unfurl/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Previewer resolves one preview request.
type Previewer interface {
	Resolve(ctx context.Context, req engine.Request) (*domain.LinkPreview, error)
}

// Upstreams describes which platform integrations are configured.
type Upstreams struct {
	PublicOrigin string
	YouTubeAPI   bool
	XAPI         bool
	RulesFile    string
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time // for testing, defaults to time.Now
	AllowedCIDRS   []string         // IPs allowed to access /infra and /metrics
	TrustProxy     bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	CORSOrigins    []string         // browser origins allowed to call the API
	RequestTimeout time.Duration    // upper bound for one preview request
	Previews       Previewer
	RedisClient    *redis.Client       // nil when running in-memory
	Registry       prometheus.Gatherer // served on /metrics
	Backend        string              // "memory" or "redis"
	RateLimit      int
	RateWindow     time.Duration
	Upstreams      Upstreams
}
