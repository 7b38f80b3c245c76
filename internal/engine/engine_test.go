package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/AlienServices/unfurl/internal/cache"
	"github.com/AlienServices/unfurl/internal/domain"
	"github.com/AlienServices/unfurl/internal/metrics"
	"github.com/AlienServices/unfurl/internal/ratelimit"
	"github.com/AlienServices/unfurl/internal/resolver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeResolver answers for one platform and counts its calls.
type fakeResolver struct {
	platform domain.Platform
	fn       func(u *url.URL) (*domain.LinkPreview, error)
	mu       sync.Mutex
	calls    int
}

func (f *fakeResolver) Platform() domain.Platform { return f.platform }

func (f *fakeResolver) Resolve(_ context.Context, u *url.URL) (*domain.LinkPreview, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(u)
}

func (f *fakeResolver) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSet map[domain.Platform]*fakeResolver

func (s fakeSet) For(p domain.Platform) resolver.Resolver {
	if r, ok := s[p]; ok {
		return r
	}
	return s[domain.PlatformGeneric]
}

func (s fakeSet) total() int {
	n := 0
	for _, r := range s {
		n += r.Calls()
	}
	return n
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("connection refused")
}

type harness struct {
	clock   *fakeClock
	set     fakeSet
	engine  *Engine
	metrics *metrics.Metrics
}

func newHarness(t *testing.T, limiter ratelimit.Limiter) *harness {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	set := fakeSet{
		domain.PlatformGeneric: {platform: domain.PlatformGeneric, fn: func(u *url.URL) (*domain.LinkPreview, error) {
			if u.Path == "/down" {
				return nil, fmt.Errorf("%w: status 502", domain.ErrGenericFetch)
			}
			return &domain.LinkPreview{URL: u.String(), Title: "Example page"}, nil
		}},
		domain.PlatformYouTube: {platform: domain.PlatformYouTube, fn: func(u *url.URL) (*domain.LinkPreview, error) {
			return &domain.LinkPreview{
				URL:      u.String(),
				Title:    "Never Gonna Give You Up",
				ImageURL: domain.Optional("https://i.ytimg.com/vi/dQw4w9WgXcQ/maxresdefault.jpg"),
			}, nil
		}},
		domain.PlatformRumble: {platform: domain.PlatformRumble, fn: func(u *url.URL) (*domain.LinkPreview, error) {
			return domain.Stub(u, domain.PlatformRumble), nil
		}},
	}

	if limiter == nil {
		limiter = ratelimit.NewMemory(ratelimit.Config{Limit: 10, Window: time.Minute, Now: clock.Now})
	}

	safety, err := domain.NewSafetyFilter(domain.DefaultSafetyRules())
	if err != nil {
		t.Fatal(err)
	}
	m := metrics.New(prometheus.NewRegistry())

	e, err := New(Config{
		Safety:    safety,
		Limiter:   limiter,
		Cache:     cache.NewMemory[domain.LinkPreview](cache.MemoryConfig{TTL: 5 * time.Minute, Now: clock.Now}),
		Resolvers: set,
		Embed:     domain.NewEmbedBuilder("https://app.example.com"),
		Metrics:   m,
		Now:       clock.Now,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &harness{clock: clock, set: set, engine: e, metrics: m}
}

func (h *harness) resolve(t *testing.T, raw string) (*domain.LinkPreview, error) {
	t.Helper()
	return h.engine.Resolve(context.Background(), Request{URL: raw, ClientID: "203.0.113.7"})
}

func TestResolveYouTube(t *testing.T) {
	h := newHarness(t, nil)

	p, err := h.resolve(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p.Platform != domain.PlatformYouTube || !p.IsVideo {
		t.Errorf("Platform = %q IsVideo = %v", p.Platform, p.IsVideo)
	}
	want := "https://www.youtube.com/embed/dQw4w9WgXcQ?origin=https%3A%2F%2Fapp.example.com"
	if domain.Deref(p.EmbedURL) != want {
		t.Errorf("EmbedURL = %q, want %q", domain.Deref(p.EmbedURL), want)
	}
	if p.Domain != "www.youtube.com" {
		t.Errorf("Domain = %q", p.Domain)
	}
	if p.CachedAt != "2026-03-01T12:00:00.000Z" {
		t.Errorf("CachedAt = %q", p.CachedAt)
	}
}

func TestResolveCachedWithinTTL(t *testing.T) {
	h := newHarness(t, nil)
	const link = "https://example.com/article"

	first, err := h.resolve(t, link)
	if err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(4 * time.Minute)
	second, err := h.resolve(t, link)
	if err != nil {
		t.Fatal(err)
	}

	if first.CachedAt != second.CachedAt || first.Title != second.Title {
		t.Errorf("cached preview changed: %+v vs %+v", first, second)
	}
	if n := h.set[domain.PlatformGeneric].Calls(); n != 1 {
		t.Errorf("resolver calls = %d, want 1", n)
	}
	if got := testutil.ToFloat64(h.metrics.Requests.WithLabelValues("cache_hit")); got != 1 {
		t.Errorf("cache_hit requests = %v, want 1", got)
	}
}

func TestResolveRefetchesAfterTTL(t *testing.T) {
	h := newHarness(t, nil)
	const link = "https://example.com/article"

	first, err := h.resolve(t, link)
	if err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(5*time.Minute + time.Second)
	second, err := h.resolve(t, link)
	if err != nil {
		t.Fatal(err)
	}

	if n := h.set[domain.PlatformGeneric].Calls(); n != 2 {
		t.Errorf("resolver calls = %d, want 2", n)
	}
	if first.CachedAt == second.CachedAt {
		t.Error("expired entry served again")
	}
}

func TestResolveRateLimit(t *testing.T) {
	h := newHarness(t, nil)

	for i := 0; i < 10; i++ {
		if _, err := h.resolve(t, fmt.Sprintf("https://example.com/page/%d", i)); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}

	_, err := h.resolve(t, "https://example.com/page/10")
	var rl *domain.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("11th request error = %v, want RateLimitError", err)
	}
	if !errors.Is(err, domain.ErrRateLimited) || rl.Limit != 10 || rl.RetryAfter <= 0 {
		t.Errorf("RateLimitError = %+v", rl)
	}
	if n := h.set.total(); n != 10 {
		t.Errorf("resolver calls = %d, rejected request reached a resolver", n)
	}

	h.clock.Advance(time.Minute)
	if _, err := h.resolve(t, "https://example.com/page/10"); err != nil {
		t.Errorf("first request of next window: %v", err)
	}
}

func TestResolveLimiterFailsOpen(t *testing.T) {
	h := newHarness(t, failingLimiter{})
	if _, err := h.resolve(t, "https://example.com/article"); err != nil {
		t.Errorf("Resolve() error = %v, want limiter failure ignored", err)
	}
}

func TestResolveRejections(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want error
	}{
		{name: "empty", url: "  ", want: domain.ErrURLRequired},
		{name: "malformed", url: "not a url", want: domain.ErrInvalidURL},
		{name: "scheme", url: "ftp://example.com/file", want: domain.ErrInvalidURL},
		{name: "localhost", url: "http://localhost:8080/admin", want: domain.ErrBlockedDomain},
		{name: "loopback", url: "http://127.0.0.1/", want: domain.ErrBlockedDomain},
		{name: "private", url: "https://192.168.1.10/router", want: domain.ErrBlockedDomain},
		{name: "metadata", url: "http://169.254.169.254/latest/meta-data", want: domain.ErrBlockedDomain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			p, err := h.resolve(t, tt.url)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Resolve(%q) error = %v, want %v", tt.url, err, tt.want)
			}
			if p != nil {
				t.Errorf("Resolve(%q) returned a preview", tt.url)
			}
			if n := h.set.total(); n != 0 {
				t.Errorf("resolver calls = %d, want 0", n)
			}
		})
	}
}

func TestResolveImageFastPath(t *testing.T) {
	h := newHarness(t, nil)

	p, err := h.resolve(t, "https://i.imgur.com/abc123.png")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !p.IsImage || p.IsVideo || p.Domain != "i.imgur.com" {
		t.Errorf("got %+v, want image preview", p)
	}
	if p.CachedAt == "" {
		t.Error("image preview without cachedAt")
	}
	if n := h.set.total(); n != 0 {
		t.Errorf("resolver calls = %d, image fast path must not fetch", n)
	}
}

func TestResolveRumbleStub(t *testing.T) {
	h := newHarness(t, nil)
	const link = "https://rumble.com/v4abc12-some-video.html"

	p, err := h.resolve(t, link)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !p.IsVideo || p.Platform != domain.PlatformRumble || p.Title != "Rumble video" {
		t.Errorf("got %+v, want rumble stub", p)
	}
	if p.EmbedURL != nil {
		t.Errorf("EmbedURL = %q, want none", domain.Deref(p.EmbedURL))
	}

	if _, err := h.resolve(t, link); err != nil {
		t.Fatal(err)
	}
	if n := h.set[domain.PlatformRumble].Calls(); n != 2 {
		t.Errorf("resolver calls = %d, stubs must not be cached", n)
	}
}

func TestResolveGenericFailure(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.resolve(t, "https://example.com/down")
	if !errors.Is(err, domain.ErrGenericFetch) {
		t.Errorf("Resolve() error = %v, want ErrGenericFetch", err)
	}
}

func TestResolveOdyseeEmbedFilledIn(t *testing.T) {
	h := newHarness(t, nil)
	h.set[domain.PlatformOdysee] = &fakeResolver{platform: domain.PlatformOdysee, fn: func(u *url.URL) (*domain.LinkPreview, error) {
		return &domain.LinkPreview{Title: "Clip", IsVideo: true}, nil
	}}

	p, err := h.resolve(t, "https://odysee.com/@alice:1/clip:7")
	if err != nil {
		t.Fatal(err)
	}
	if domain.Deref(p.EmbedURL) != "https://odysee.com/embed/clip:7" {
		t.Errorf("EmbedURL = %q", domain.Deref(p.EmbedURL))
	}
	if p.URL != "https://odysee.com/@alice:1/clip:7" {
		t.Errorf("URL = %q", p.URL)
	}
}

func TestResolveTelegramSkipsURLHeuristics(t *testing.T) {
	tests := []struct {
		name    string
		isVideo bool
	}{
		{"no video metadata", false},
		{"og:video present", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.set[domain.PlatformTelegram] = &fakeResolver{platform: domain.PlatformTelegram, fn: func(u *url.URL) (*domain.LinkPreview, error) {
				return &domain.LinkPreview{Title: "Channel post", IsVideo: tt.isVideo}, nil
			}}

			p, err := h.resolve(t, "https://t.me/durov/clip.mp4")
			if err != nil {
				t.Fatal(err)
			}
			if p.IsVideo != tt.isVideo {
				t.Errorf("IsVideo = %v, want %v", p.IsVideo, tt.isVideo)
			}
			if p.EmbedURL != nil {
				t.Errorf("EmbedURL = %q, want none", domain.Deref(p.EmbedURL))
			}
		})
	}
}
