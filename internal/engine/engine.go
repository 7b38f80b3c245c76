// Package engine orchestrates one preview request: validation, safety,
// rate limiting, the preview cache, platform resolution and normalization.
package engine

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/AlienServices/unfurl/internal/cache"
	"github.com/AlienServices/unfurl/internal/domain"
	"github.com/AlienServices/unfurl/internal/logger"
	"github.com/AlienServices/unfurl/internal/metrics"
	"github.com/AlienServices/unfurl/internal/ratelimit"
	"github.com/AlienServices/unfurl/internal/resolver"
)

// Request is one preview request.
type Request struct {
	URL string
	// ClientID keys the rate limiter, usually the client IP.
	ClientID string
	// PostID is accepted for correlation and only logged.
	PostID string
}

// Resolvers picks the resolver of a platform.
type Resolvers interface {
	For(platform domain.Platform) resolver.Resolver
}

type Config struct {
	Safety    *domain.SafetyFilter
	Limiter   ratelimit.Limiter // nil disables rate limiting
	Cache     cache.Cache[domain.LinkPreview]
	Resolvers Resolvers
	Embed     *domain.EmbedBuilder
	Videos    *domain.VideoClassifier
	Log       logger.Logger
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

type Engine struct {
	cfg Config
}

func New(cfg Config) (*Engine, error) {
	if cfg.Safety == nil {
		return nil, errors.New("engine: safety filter is required")
	}
	if cfg.Cache == nil {
		return nil, errors.New("engine: preview cache is required")
	}
	if cfg.Resolvers == nil {
		return nil, errors.New("engine: resolvers are required")
	}
	if cfg.Embed == nil {
		cfg.Embed = domain.NewEmbedBuilder("")
	}
	if cfg.Videos == nil {
		cfg.Videos = domain.NewVideoClassifier(nil, nil)
	}
	if cfg.Log == nil {
		cfg.Log = logger.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{cfg: cfg}, nil
}

// Resolve returns the preview of req.URL. Errors wrap the domain
// sentinels; a rejected request returns a *domain.RateLimitError.
func (e *Engine) Resolve(ctx context.Context, req Request) (*domain.LinkPreview, error) {
	p, outcome, err := e.resolve(ctx, req)
	e.cfg.Metrics.Request(outcome)
	return p, err
}

func (e *Engine) resolve(ctx context.Context, req Request) (*domain.LinkPreview, string, error) {
	u, err := e.cfg.Safety.Check(req.URL)
	if err != nil {
		if errors.Is(err, domain.ErrBlockedDomain) {
			e.cfg.Log.Info("blocked preview request",
				logger.String("url", req.URL),
				logger.String("client", req.ClientID))
			return nil, "blocked", err
		}
		return nil, "invalid", err
	}

	if e.cfg.Safety.IsImage(u) {
		return domain.ImagePreview(u, e.cfg.Now()), "image", nil
	}

	if err := e.allow(ctx, req.ClientID); err != nil {
		return nil, "rate_limited", err
	}

	key := u.String()
	if p, ok := e.cached(ctx, key); ok {
		return p, "cache_hit", nil
	}

	platform := domain.ClassifyPlatform(u.Hostname())
	start := time.Now()
	p, err := e.cfg.Resolvers.For(platform).Resolve(ctx, u)
	e.cfg.Metrics.ObserveResolve(platform.String(), time.Since(start))
	if err != nil {
		e.cfg.Log.Warn("preview resolution failed",
			logger.String("url", key),
			logger.String("platform", platform.String()),
			logger.Error(err))
		return nil, "error", err
	}

	p = e.normalize(u, platform, p)
	if !p.Stub {
		if err := e.cfg.Cache.Set(ctx, key, *p); err != nil {
			e.cfg.Log.Warn("preview cache write failed", logger.String("url", key), logger.Error(err))
		}
	}

	e.cfg.Log.Debug("preview resolved",
		logger.String("url", key),
		logger.String("platform", platform.String()),
		logger.String("post_id", req.PostID),
		logger.Bool("stub", p.Stub),
		logger.Bool("video", p.IsVideo))

	if p.Stub {
		return p, "stub", nil
	}
	return p, "resolved", nil
}

// allow consults the limiter. A failing backend lets the request through.
func (e *Engine) allow(ctx context.Context, client string) error {
	if e.cfg.Limiter == nil {
		return nil
	}
	d, err := e.cfg.Limiter.Allow(ctx, client)
	if err != nil {
		e.cfg.Log.Warn("rate limiter unavailable, allowing request",
			logger.String("client", client),
			logger.Error(err))
		return nil
	}
	if d.Allowed {
		return nil
	}

	e.cfg.Metrics.Limited()
	e.cfg.Log.Info("rate limit exceeded",
		logger.String("client", client),
		logger.Int("limit", d.Limit))
	return &domain.RateLimitError{Limit: d.Limit, RetryAfter: d.RetryIn(e.cfg.Now())}
}

func (e *Engine) cached(ctx context.Context, key string) (*domain.LinkPreview, bool) {
	p, ok, err := e.cfg.Cache.Get(ctx, key)
	if err != nil {
		e.cfg.Log.Warn("preview cache read failed", logger.String("url", key), logger.Error(err))
		return nil, false
	}
	e.cfg.Metrics.CacheLookup("preview", ok)
	if !ok {
		return nil, false
	}
	return &p, true
}

// normalize fills the fields every preview carries regardless of resolver.
func (e *Engine) normalize(u *url.URL, platform domain.Platform, p *domain.LinkPreview) *domain.LinkPreview {
	if p == nil {
		p = domain.Stub(u, platform)
	}
	p.URL = u.String()
	p.Domain = u.Hostname()
	p.Platform = platform
	// Telegram pages are videos only when their metadata says so.
	if platform != domain.PlatformTelegram {
		p.IsVideo = e.cfg.Videos.Classify(u, p.IsVideo, domain.VideoSignals{})
	}
	if p.EmbedURL == nil {
		p.EmbedURL = domain.Optional(e.cfg.Embed.Build(u, platform))
	}
	p.CachedAt = e.cfg.Now().UTC().Format(domain.CachedAtLayout)
	return p
}
