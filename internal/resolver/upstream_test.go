package resolver

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/AlienServices/unfurl/internal/cache"
	"github.com/AlienServices/unfurl/internal/domain"
	"github.com/AlienServices/unfurl/internal/fetch"
	"github.com/AlienServices/unfurl/internal/logger"
)

// rewriteTransport sends every request to one test server while keeping
// the original Host header, so handlers can tell upstreams apart.
type rewriteTransport struct {
	target *url.URL
	base   http.RoundTripper
}

func (t *rewriteTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	out := r.Clone(r.Context())
	if out.Host == "" {
		out.Host = r.URL.Host
	}
	out.URL.Scheme = t.target.Scheme
	out.URL.Host = t.target.Host
	resp, err := t.base.RoundTrip(out)
	if resp != nil {
		// Report the original URL so redirects and page bases stay on
		// the faked host.
		resp.Request = r
	}
	return resp, err
}

// upstream fakes every platform behind a single httptest server.
// Routes are "host/path"; a "*" host matches any host.
type upstream struct {
	srv    *httptest.Server
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  map[string]int
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	up := &upstream{
		routes: make(map[string]http.HandlerFunc),
		calls:  make(map[string]int),
	}
	up.srv = httptest.NewServer(http.HandlerFunc(up.serve))
	t.Cleanup(up.srv.Close)
	return up
}

func (up *upstream) serve(w http.ResponseWriter, r *http.Request) {
	host := r.Host
	if h, _, err := splitHostPort(host); err == nil {
		host = h
	}

	up.mu.Lock()
	key := host + r.URL.Path
	h, ok := up.routes[key]
	if !ok {
		key = "*" + r.URL.Path
		h, ok = up.routes[key]
	}
	if ok {
		up.calls[key]++
	}
	up.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func (up *upstream) handle(route string, h http.HandlerFunc) {
	up.mu.Lock()
	up.routes[route] = h
	up.mu.Unlock()
}

func (up *upstream) count(route string) int {
	up.mu.Lock()
	defer up.mu.Unlock()
	return up.calls[route]
}

func (up *upstream) client() *fetch.Client {
	target, _ := url.Parse(up.srv.URL)
	hc := &http.Client{
		Timeout:   5 * time.Second,
		Transport: &rewriteTransport{target: target, base: http.DefaultTransport},
	}
	return fetch.NewWithHTTPClient(hc, 0)
}

func (up *upstream) deps() Deps {
	return Deps{
		Fetch:    up.client(),
		Cache:    cache.NewMemory[domain.LinkPreview](cache.MemoryConfig{TTL: 30 * time.Minute}),
		Embed:    domain.NewEmbedBuilder("https://app.example.com"),
		Videos:   domain.NewVideoClassifier(nil, nil),
		Log:      logger.NewNop(),
		Timeouts: DefaultTimeouts(),
	}
}

func html(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}
}

func jsonBody(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q) error = %v", raw, err)
	}
	return u
}

func splitHostPort(hostport string) (string, string, error) {
	u, err := url.Parse("//" + hostport)
	if err != nil {
		return "", "", err
	}
	return u.Hostname(), u.Port(), nil
}

func deref(s *string) string { return domain.Deref(s) }
