package domain

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// DefaultBlocklist holds hostname prefixes that must never be fetched:
// loopback, the unspecified address, link-local and the private IPv4 ranges.
var DefaultBlocklist = []string{
	"localhost",
	"127.",
	"0.0.0.0",
	"10.",
	"172.16.", "172.17.", "172.18.", "172.19.",
	"172.20.", "172.21.", "172.22.", "172.23.",
	"172.24.", "172.25.", "172.26.", "172.27.",
	"172.28.", "172.29.", "172.30.", "172.31.",
	"192.168.",
	"169.254.",
	"::1",
	"[::1]",
}

// DefaultImageExtensions are path suffixes treated as direct images.
var DefaultImageExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".bmp", ".ico", ".avif", ".tiff",
}

// DefaultImageHosts are host patterns of image CDNs that only serve images.
var DefaultImageHosts = []string{
	`^i\.imgur\.com$`,
	`^pbs\.twimg\.com$`,
	`^i\.redd\.it$`,
	`^i\.ytimg\.com$`,
	`^images\.unsplash\.com$`,
	`^media[0-9]*\.giphy\.com$`,
	`^cdn\.discordapp\.com$`,
	`^media\.discordapp\.net$`,
	`^upload\.wikimedia\.org$`,
}

// SafetyRules configures a SafetyFilter.
type SafetyRules struct {
	Blocklist       []string
	ImageExtensions []string
	ImageHosts      []string // regular expressions matched against the lower-cased host
}

// DefaultSafetyRules returns the built-in tables.
func DefaultSafetyRules() SafetyRules {
	return SafetyRules{
		Blocklist:       append([]string(nil), DefaultBlocklist...),
		ImageExtensions: append([]string(nil), DefaultImageExtensions...),
		ImageHosts:      append([]string(nil), DefaultImageHosts...),
	}
}

// SafetyFilter validates candidate URLs before any network work happens.
type SafetyFilter struct {
	blocklist  []string
	imageExts  []string
	imageHosts []*regexp.Regexp
}

// NewSafetyFilter compiles the rules. It fails on an invalid host pattern.
func NewSafetyFilter(rules SafetyRules) (*SafetyFilter, error) {
	f := &SafetyFilter{
		blocklist: lowerAll(rules.Blocklist),
		imageExts: lowerAll(rules.ImageExtensions),
	}
	for _, p := range rules.ImageHosts {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid image host pattern %q: %w", p, err)
		}
		f.imageHosts = append(f.imageHosts, re)
	}
	return f, nil
}

// Parse accepts only absolute http(s) URLs with a host.
func (f *SafetyFilter) Parse(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrURLRequired
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" || strings.ContainsAny(u.Host, " \t") {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u, nil
}

// Check parses raw and rejects blocked hosts.
func (f *SafetyFilter) Check(raw string) (*url.URL, error) {
	u, err := f.Parse(raw)
	if err != nil {
		return nil, err
	}
	if f.IsBlocked(u.Hostname()) {
		return nil, fmt.Errorf("%w: %s", ErrBlockedDomain, u.Hostname())
	}
	return u, nil
}

// IsBlocked reports whether host equals or starts with a blocklist entry.
func (f *SafetyFilter) IsBlocked(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	for _, prefix := range f.blocklist {
		if host == prefix || strings.HasPrefix(host, prefix) {
			return true
		}
	}
	return false
}

// IsImage reports whether u points straight at an image file or image CDN.
func (f *SafetyFilter) IsImage(u *url.URL) bool {
	ext := strings.ToLower(path.Ext(u.Path))
	for _, e := range f.imageExts {
		if ext == e {
			return true
		}
	}
	host := strings.ToLower(u.Hostname())
	for _, re := range f.imageHosts {
		if re.MatchString(host) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
