package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/AlienServices/unfurl/internal/cache"
	"github.com/AlienServices/unfurl/internal/config"
	"github.com/AlienServices/unfurl/internal/domain"
	"github.com/AlienServices/unfurl/internal/engine"
	"github.com/AlienServices/unfurl/internal/fetch"
	"github.com/AlienServices/unfurl/internal/httpserver"
	"github.com/AlienServices/unfurl/internal/httpserver/deps"
	"github.com/AlienServices/unfurl/internal/logger"
	"github.com/AlienServices/unfurl/internal/metrics"
	"github.com/AlienServices/unfurl/internal/ratelimit"
	"github.com/AlienServices/unfurl/internal/redis"
	"github.com/AlienServices/unfurl/internal/resolver"
	"github.com/AlienServices/unfurl/internal/rules"
	"github.com/AlienServices/unfurl/internal/scheduler"
	redisstore "github.com/AlienServices/unfurl/internal/store/redis"
	"github.com/AlienServices/unfurl/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	engine      *engine.Engine
	janitor     *scheduler.Janitor // nil with the redis backend
}

// backends are the cache and limiter implementations for one deployment.
type backends struct {
	name     string
	previews cache.Cache[domain.LinkPreview]
	platform cache.Cache[domain.LinkPreview]
	limiter  ratelimit.Limiter
	sweep    map[string]scheduler.Sweeper
}

// New wires the engine and the HTTP server from cfg. It connects to
// Redis when an address is configured and fails if Redis stays down.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	loggerClient := logger.New(logger.Options{
		Level:     cfg.LogLevel,
		Pretty:    cfg.PrettyLog,
		File:      cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSize,
	})

	tables, err := rules.Load(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	if cfg.RulesFile != "" {
		loggerClient.Info("rules overlay loaded",
			logger.String("file", cfg.RulesFile),
			logger.Int("blocklist", len(tables.Safety.Blocklist)),
			logger.Int("video_domains", len(tables.VideoDomains)))
	}
	safety, err := domain.NewSafetyFilter(tables.Safety)
	if err != nil {
		return nil, fmt.Errorf("building safety filter: %w", err)
	}
	videos := domain.NewVideoClassifier(tables.VideoDomains, tables.VideoExtensions)
	embed := domain.NewEmbedBuilder(cfg.PublicOrigin)

	var redisClient *goredis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = redis.New(ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}
	be := newBackends(cfg, redisClient)
	loggerClient.Info("cache and rate limit backend selected", logger.String("backend", be.name))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	fetcher := fetch.New(fetch.Options{
		MaxBodyBytes: cfg.MaxBodyBytes,
		MaxRedirects: cfg.MaxRedirects,
		Timeout:      cfg.GenericTimeout + 5*time.Second,
	})

	set, err := resolver.NewSet(ctx, resolver.Deps{
		Fetch:   fetcher,
		Cache:   be.platform,
		Embed:   embed,
		Videos:  videos,
		Log:     loggerClient,
		Metrics: m,
		Timeouts: resolver.Timeouts{
			API:     cfg.APITimeout,
			Scrape:  cfg.ScrapeTimeout,
			Generic: cfg.GenericTimeout,
		},
	}, resolver.Credentials{
		YouTubeAPIKey: cfg.YouTubeAPIKey,
		XBearerToken:  cfg.XBearerToken,
	})
	if err != nil {
		closeRedis(redisClient, loggerClient)
		return nil, fmt.Errorf("building resolvers: %w", err)
	}

	eng, err := engine.New(engine.Config{
		Safety:    safety,
		Limiter:   be.limiter,
		Cache:     be.previews,
		Resolvers: set,
		Embed:     embed,
		Videos:    videos,
		Log:       loggerClient,
		Metrics:   m,
	})
	if err != nil {
		closeRedis(redisClient, loggerClient)
		return nil, err
	}

	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
		Previews:       eng,
		RedisClient:    redisClient,
		Registry:       registry,
		Backend:        be.name,
		RateLimit:      cfg.RateLimit,
		RateWindow:     cfg.RateWindow,
		Upstreams: deps.Upstreams{
			PublicOrigin: cfg.PublicOrigin,
			YouTubeAPI:   cfg.YouTubeAPIKey != "",
			XAPI:         cfg.XBearerToken != "",
			RulesFile:    cfg.RulesFile,
		},
	}

	a := &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		engine:      eng,
	}
	if be.sweep != nil {
		a.janitor = scheduler.NewJanitor(loggerClient, cfg.SweepInterval, be.sweep)
	}
	return a, nil
}

func newBackends(cfg *config.Config, client *goredis.Client) backends {
	if client != nil {
		return backends{
			name:     "redis",
			previews: redisstore.NewCache[domain.LinkPreview](client, "preview", cfg.PreviewCacheTTL),
			platform: redisstore.NewCache[domain.LinkPreview](client, "platform", cfg.PlatformCacheTTL),
			limiter:  redisstore.NewLimiter(client, cfg.RateLimit, cfg.RateWindow),
		}
	}
	previews := cache.NewMemory[domain.LinkPreview](cache.MemoryConfig{
		TTL:        cfg.PreviewCacheTTL,
		MaxEntries: cfg.CacheMaxEntries,
	})
	platform := cache.NewMemory[domain.LinkPreview](cache.MemoryConfig{
		TTL:        cfg.PlatformCacheTTL,
		MaxEntries: cfg.CacheMaxEntries,
	})
	limiter := ratelimit.NewMemory(ratelimit.Config{
		Limit:      cfg.RateLimit,
		Window:     cfg.RateWindow,
		MaxEntries: cfg.CacheMaxEntries,
	})
	return backends{
		name:     "memory",
		previews: previews,
		platform: platform,
		limiter:  limiter,
		sweep: map[string]scheduler.Sweeper{
			"preview_cache":  previews,
			"platform_cache": platform,
			"rate_limiter":   limiter,
		},
	}
}

// Resolve runs one preview through the engine, outside of any HTTP request.
func (a *App) Resolve(ctx context.Context, rawURL string) (*domain.LinkPreview, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()
	return a.engine.Resolve(ctx, engine.Request{URL: rawURL, ClientID: "cli"})
}

// Run serves HTTP until SIGINT or SIGTERM, then shuts down gracefully.
func (a *App) Run() error {
	a.logger.Infof("🚀 Starting %s on %s", version.Info(), a.cfg.ListenPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.janitor != nil {
		a.janitor.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		a.Close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.Close()
	a.logger.Info("✅ unfurl stopped cleanly")
	return nil
}

// Close stops the janitor, releases the Redis connection and flushes logs.
func (a *App) Close() {
	if a.janitor != nil {
		a.janitor.Stop()
	}
	closeRedis(a.redisClient, a.logger)
	_ = a.logger.Sync()
}

func closeRedis(client *goredis.Client, log logger.Logger) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		log.Warnf("failed to close redis: %v", err)
	} else {
		log.Info("✅ Redis closed cleanly")
	}
}
