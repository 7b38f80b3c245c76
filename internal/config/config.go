package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // upper bound for one /api/preview request

	LogLevel   string // "debug" | "info" | "warn" | "error"
	PrettyLog  bool   // true => zap dev (color), false => zap prod (JSON)
	LogFile    string // optional, tee JSON logs into a rotated file
	LogMaxSize int    // megabytes before rotation

	PublicOrigin  string // origin of the embedding app, used in player URLs
	YouTubeAPIKey string // optional, enables the Data API strategy
	XBearerToken  string // optional, enables the X API v2 strategy

	RateLimit        int           // requests per client per window
	RateWindow       time.Duration // fixed window length
	PreviewCacheTTL  time.Duration
	PlatformCacheTTL time.Duration
	CacheMaxEntries  int           // per in-memory tier
	SweepInterval    time.Duration // janitor period for the in-memory backends

	APITimeout     time.Duration // official APIs and oEmbed
	ScrapeTimeout  time.Duration // platform page scrapes
	GenericTimeout time.Duration // generic page download
	MaxBodyBytes   int64         // cap on downloaded bodies
	MaxRedirects   int

	RulesFile string // optional YAML overlay for the safety/image/video tables

	// Redis (optional, empty address = in-memory cache and limiter)
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedCIDRS []string // optional, restrict /infra and /metrics to these networks
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	CORSOrigins  []string // optional, browser origins allowed to call /api/preview
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("UNFURL_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("UNFURL_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("UNFURL_REQUEST_TIMEOUT", 30*time.Second),

		// Logging
		LogLevel:   getenv("UNFURL_LOG_LEVEL", "info"),
		PrettyLog:  mustBool("UNFURL_PRETTY_LOG", true),
		LogFile:    getenv("UNFURL_LOG_FILE", ""),
		LogMaxSize: getenvInt("UNFURL_LOG_MAX_SIZE_MB", 100),

		// Upstreams
		PublicOrigin:  normalizeOrigin("UNFURL_PUBLIC_ORIGIN", requireEnv("UNFURL_PUBLIC_ORIGIN")),
		YouTubeAPIKey: getenv("UNFURL_YOUTUBE_API_KEY", ""),
		XBearerToken:  getenv("UNFURL_X_BEARER_TOKEN", ""),

		// Limits and caches
		RateLimit:        getenvInt("UNFURL_RATE_LIMIT", 10),
		RateWindow:       mustDuration("UNFURL_RATE_WINDOW", time.Minute),
		PreviewCacheTTL:  mustDuration("UNFURL_PREVIEW_CACHE_TTL", 5*time.Minute),
		PlatformCacheTTL: mustDuration("UNFURL_PLATFORM_CACHE_TTL", 30*time.Minute),
		CacheMaxEntries:  getenvInt("UNFURL_CACHE_MAX_ENTRIES", 10000),
		SweepInterval:    mustDuration("UNFURL_SWEEP_INTERVAL", time.Minute),

		// Fetching
		APITimeout:     mustDuration("UNFURL_API_TIMEOUT", 5*time.Second),
		ScrapeTimeout:  mustDuration("UNFURL_SCRAPE_TIMEOUT", 10*time.Second),
		GenericTimeout: mustDuration("UNFURL_GENERIC_TIMEOUT", 15*time.Second),
		MaxBodyBytes:   int64(getenvInt("UNFURL_MAX_BODY_BYTES", 2<<20)),
		MaxRedirects:   getenvInt("UNFURL_MAX_REDIRECTS", 5),

		RulesFile: getenv("UNFURL_RULES_FILE", ""),

		// Redis settings
		RedisAddr:             getenv("UNFURL_REDIS_ADDR", ""),
		RedisUser:             getenv("UNFURL_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("UNFURL_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("UNFURL_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("UNFURL_REDIS_DB", 0),
		RedisDT:               mustDuration("UNFURL_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("UNFURL_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("UNFURL_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("UNFURL_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("UNFURL_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("UNFURL_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("UNFURL_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("UNFURL_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("UNFURL_REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedCIDRS: parseAllowedIPs(getenv("UNFURL_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("UNFURL_TRUST_PROXY", true),
		CORSOrigins:  splitAndTrim(getenv("UNFURL_CORS_ORIGINS", "")),
	}

	if cfg.RateLimit < 1 {
		panic(fmt.Sprintf("❌ FATAL: UNFURL_RATE_LIMIT must be at least 1, got %d", cfg.RateLimit))
	}

	// Validate Redis password configuration
	if cfg.RedisAddr != "" && cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: UNFURL_REDIS_PASSWORD is required when UNFURL_REDIS_PASSWORD_REQUIRED=true")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// Redacted returns a copy safe to log or expose.
func (c Config) Redacted() Config {
	const mask = "***REDACTED***"
	if c.RedisPassword != "" {
		c.RedisPassword = mask
	}
	if c.RedisUser != "" {
		c.RedisUser = mask
	}
	if c.YouTubeAPIKey != "" {
		c.YouTubeAPIKey = mask
	}
	if c.XBearerToken != "" {
		c.XBearerToken = mask
	}
	return c
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// normalizeOrigin keeps scheme and host of an absolute http(s) URL.
// Example: "https://app.domain.ext/feed/" -> "https://app.domain.ext"
func normalizeOrigin(key, raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		panic(fmt.Sprintf("❌ FATAL: %s must be an absolute http(s) URL, got %q", key, raw))
	}
	return u.Scheme + "://" + u.Host
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
