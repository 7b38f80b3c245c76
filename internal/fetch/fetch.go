// Package fetch is the outbound HTTP client used by every resolver.
// It refuses to connect to private addresses, bounds response bodies and
// follows a limited number of redirects.
package fetch

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/AlienServices/unfurl/internal/utils"
	"golang.org/x/net/html/charset"
)

const (
	// BotUserAgent identifies us to sites that serve previews to crawlers.
	BotUserAgent = "Mozilla/5.0 (compatible; UnfurlBot/1.0; +https://github.com/AlienServices/unfurl)"
	// BrowserUserAgent is used for sites that hide metadata from bots.
	BrowserUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

	defaultMaxBody      = 2 << 20
	defaultMaxRedirects = 5
	defaultTimeout      = 30 * time.Second
	dialTimeout         = 5 * time.Second
)

var (
	// ErrNotHTML is returned when a page fetch yields another content type.
	ErrNotHTML = errors.New("response is not html")
	// ErrPrivateAddress is returned when a host resolves to a private address.
	ErrPrivateAddress = errors.New("connection to private address is not allowed")
	// ErrTooManyRedirects is returned past Options.MaxRedirects hops.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// StatusError is a non-2xx upstream response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Code, e.URL)
}

type Options struct {
	MaxBodyBytes int64
	MaxRedirects int
	// Timeout is a backstop; callers bound each call with a context deadline.
	Timeout time.Duration
	// AllowPrivate disables the private address check. Tests only.
	AllowPrivate bool
}

// Page is a downloaded HTML document.
type Page struct {
	// URL is the final URL after redirects.
	URL         string
	Body        string
	ContentType string
}

type Client struct {
	hc      *http.Client
	maxBody int64
}

// New builds a Client with an SSRF-safe transport.
func New(opts Options) *Client {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBody
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = defaultMaxRedirects
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	dial := (&net.Dialer{Timeout: dialTimeout}).DialContext
	if !opts.AllowPrivate {
		dial = safeDialContext
	}

	transport := &http.Transport{
		DialContext: dial,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       60 * time.Second,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: 15 * time.Second,
	}

	maxRedirects := opts.MaxRedirects
	hc := &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return ErrTooManyRedirects
			}
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return fmt.Errorf("redirect to unsupported scheme %q", req.URL.Scheme)
			}
			return nil
		},
	}
	return &Client{hc: hc, maxBody: opts.MaxBodyBytes}
}

// NewWithHTTPClient wraps a custom http.Client (e.g. an httptest one).
func NewWithHTTPClient(hc *http.Client, maxBody int64) *Client {
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	return &Client{hc: hc, maxBody: maxBody}
}

// HTTPClient exposes the underlying client for SDKs that take one.
func (c *Client) HTTPClient() *http.Client { return c.hc }

// HTML downloads an HTML page with the given user agent.
func (c *Client) HTML(ctx context.Context, rawURL, userAgent string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer utils.DrainClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	ct := resp.Header.Get("Content-Type")
	if !isHTML(ct) {
		return nil, fmt.Errorf("%w: %q", ErrNotHTML, ct)
	}

	// The limit applies to the wire bytes; the page is converted to UTF-8
	// from the header charset, a BOM or a <meta charset> declaration.
	utf8Body, err := charset.NewReader(io.LimitReader(resp.Body, c.maxBody), ct)
	if err != nil {
		return nil, fmt.Errorf("decoding body: %w", err)
	}
	body, err := io.ReadAll(utf8Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	return &Page{
		URL:         resp.Request.URL.String(),
		Body:        string(body),
		ContentType: ct,
	}, nil
}

// JSON performs a GET and decodes the JSON response into out.
func (c *Client) JSON(ctx context.Context, rawURL string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", BotUserAgent)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer utils.DrainClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, c.maxBody)).Decode(out); err != nil {
		return fmt.Errorf("decoding json: %w", err)
	}
	return nil
}

// isHTML accepts text/html and xhtml. A missing content type is treated
// as HTML since many small sites omit it.
func isHTML(ct string) bool {
	if strings.TrimSpace(ct) == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.Contains(strings.ToLower(ct), "html")
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

// safeDialContext resolves DNS then rejects private IPs before connecting.
func safeDialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no addresses for %s", host)
	}

	for _, ip := range ips {
		if utils.IsPrivateIP(ip.IP) {
			return nil, fmt.Errorf("%w: %s", ErrPrivateAddress, ip.IP)
		}
	}

	dialer := &net.Dialer{Timeout: dialTimeout}
	var lastErr error
	for _, ip := range ips {
		conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip.IP.String(), port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
