// Package resolver turns a classified URL into a LinkPreview. Each platform
// runs an ordered cascade of strategies and falls back to a stub built
// from the URL; only the generic resolver can fail.
package resolver

import (
	"context"
	"net/url"
	"time"

	"github.com/AlienServices/unfurl/internal/cache"
	"github.com/AlienServices/unfurl/internal/domain"
	"github.com/AlienServices/unfurl/internal/fetch"
	"github.com/AlienServices/unfurl/internal/logger"
	"github.com/AlienServices/unfurl/internal/metrics"
)

// Timeouts bound each upstream call.
type Timeouts struct {
	API     time.Duration // official APIs and oEmbed endpoints
	Scrape  time.Duration // platform page scrapes
	Generic time.Duration // generic page download
}

// DefaultTimeouts returns 5s for APIs, 10s for scrapes and 15s for generic pages.
func DefaultTimeouts() Timeouts {
	return Timeouts{API: 5 * time.Second, Scrape: 10 * time.Second, Generic: 15 * time.Second}
}

// Deps are shared by every resolver.
type Deps struct {
	Fetch *fetch.Client
	// Cache is the platform tier. It may be nil.
	Cache    cache.Cache[domain.LinkPreview]
	Embed    *domain.EmbedBuilder
	Videos   *domain.VideoClassifier
	Log      logger.Logger
	Metrics  *metrics.Metrics
	Timeouts Timeouts
}

// Resolver produces a preview for URLs of one platform.
type Resolver interface {
	Platform() domain.Platform
	Resolve(ctx context.Context, u *url.URL) (*domain.LinkPreview, error)
}

// Strategy is one attempt of a cascade. Run returns (nil, nil) when the
// upstream answered but had nothing usable.
type Strategy struct {
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context, u *url.URL) (*domain.LinkPreview, error)
}

// Cascade runs strategies in order and returns the first usable preview
// and the name of the strategy that produced it. Errors and timeouts are
// soft failures. It returns nil when every strategy failed.
func Cascade(ctx context.Context, d Deps, platform domain.Platform, u *url.URL, strategies ...Strategy) (*domain.LinkPreview, string) {
	log := d.Log.With(logger.String("platform", platform.String()), logger.String("url", u.String()))

	for _, s := range strategies {
		if ctx.Err() != nil {
			break
		}

		sctx, cancel := ctx, context.CancelFunc(func() {})
		if s.Timeout > 0 {
			sctx, cancel = context.WithTimeout(ctx, s.Timeout)
		}
		start := time.Now()
		p, err := s.Run(sctx, u)
		cancel()

		switch {
		case err != nil:
			d.Metrics.Strategy(platform.String(), s.Name, "error")
			log.Debug("strategy failed",
				logger.String("strategy", s.Name),
				logger.Duration("elapsed", time.Since(start)),
				logger.Error(err))
		case p == nil:
			d.Metrics.Strategy(platform.String(), s.Name, "empty")
			log.Debug("strategy returned nothing usable", logger.String("strategy", s.Name))
		default:
			d.Metrics.Strategy(platform.String(), s.Name, "ok")
			return p, s.Name
		}
	}

	log.Info("all strategies exhausted, using stub")
	return nil, ""
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	if d.Videos == nil {
		d.Videos = domain.NewVideoClassifier(nil, nil)
	}
	if d.Embed == nil {
		d.Embed = domain.NewEmbedBuilder("")
	}
	if d.Timeouts == (Timeouts{}) {
		d.Timeouts = DefaultTimeouts()
	}
	return d
}

// cached reads the platform cache. Backend errors count as a miss.
func (d Deps) cached(ctx context.Context, key string) (*domain.LinkPreview, bool) {
	if d.Cache == nil || key == "" {
		return nil, false
	}
	p, ok, err := d.Cache.Get(ctx, key)
	if err != nil {
		d.Log.Warn("platform cache read failed", logger.String("key", key), logger.Error(err))
		return nil, false
	}
	d.Metrics.CacheLookup("platform", ok)
	if !ok {
		return nil, false
	}
	return &p, true
}

// store writes a successful, non-stub preview to the platform cache.
func (d Deps) store(ctx context.Context, key string, p *domain.LinkPreview) {
	if d.Cache == nil || key == "" || p == nil || p.Stub {
		return
	}
	if err := d.Cache.Set(ctx, key, *p); err != nil {
		d.Log.Warn("platform cache write failed", logger.String("key", key), logger.Error(err))
	}
}

// withPlatformCache wraps a cascade with the platform cache under key.
func withPlatformCache(ctx context.Context, d Deps, key string, resolve func() *domain.LinkPreview) *domain.LinkPreview {
	if p, ok := d.cached(ctx, key); ok {
		return p
	}
	p := resolve()
	d.store(ctx, key, p)
	return p
}

// Credentials unlock the official platform APIs. Empty values skip
// the API strategies.
type Credentials struct {
	YouTubeAPIKey string
	XBearerToken  string
}

// Set maps each platform to its resolver.
type Set struct {
	byPlatform map[domain.Platform]Resolver
	generic    *Generic
}

// NewSet builds every resolver over the same deps.
func NewSet(ctx context.Context, d Deps, creds Credentials) (*Set, error) {
	d = d.withDefaults()
	generic := NewGeneric(d)
	youtube, err := NewYouTube(ctx, d, creds.YouTubeAPIKey, generic)
	if err != nil {
		return nil, err
	}

	s := &Set{
		byPlatform: make(map[domain.Platform]Resolver, 6),
		generic:    generic,
	}
	for _, r := range []Resolver{
		generic,
		youtube,
		NewX(ctx, d, creds.XBearerToken),
		NewRumble(d),
		NewOdysee(d),
		NewTelegram(d),
	} {
		s.byPlatform[r.Platform()] = r
	}
	return s, nil
}

// For returns the resolver of platform, the generic one when unknown.
func (s *Set) For(platform domain.Platform) Resolver {
	if r, ok := s.byPlatform[platform]; ok {
		return r
	}
	return s.generic
}
