package domain

import (
	"net/url"
	"path"
	"strings"
)

// DefaultVideoDomains are hosts that serve video pages.
var DefaultVideoDomains = []string{
	"youtube.com", "youtu.be",
	"vimeo.com",
	"dailymotion.com", "dai.ly",
	"twitch.tv",
	"rumble.com",
	"odysee.com",
	"tiktok.com",
	"bitchute.com",
	"streamable.com",
	"kick.com",
}

// DefaultVideoExtensions are path suffixes of direct video files and manifests.
var DefaultVideoExtensions = []string{
	".mp4", ".webm", ".mov", ".m4v", ".mkv", ".avi", ".ogv", ".m3u8", ".mpd",
}

// VideoSignals are the metadata hints gathered while resolving a page.
type VideoSignals struct {
	OGVideo             string
	OGVideoType         string
	TwitterPlayer       string
	TwitterPlayerStream string
	// MediaVideo is set by platform APIs that report a video attachment.
	MediaVideo bool
}

// Present reports whether any signal marks the page as a video.
func (s VideoSignals) Present() bool {
	return s.MediaVideo ||
		s.OGVideo != "" ||
		strings.HasPrefix(strings.ToLower(s.OGVideoType), "video/") ||
		s.TwitterPlayer != "" ||
		s.TwitterPlayerStream != ""
}

// VideoClassifier decides whether a URL is a video.
type VideoClassifier struct {
	domains []string
	exts    []string
}

// NewVideoClassifier builds a classifier; nil slices fall back to the defaults.
func NewVideoClassifier(domains, exts []string) *VideoClassifier {
	if domains == nil {
		domains = DefaultVideoDomains
	}
	if exts == nil {
		exts = DefaultVideoExtensions
	}
	return &VideoClassifier{domains: lowerAll(domains), exts: lowerAll(exts)}
}

// IsVideoURL checks the host against the video domains and the path
// against the video extensions.
func (c *VideoClassifier) IsVideoURL(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	for _, d := range c.domains {
		if HostMatches(host, d) {
			return true
		}
	}
	ext := strings.ToLower(path.Ext(u.Path))
	for _, e := range c.exts {
		if ext == e {
			return true
		}
	}
	return false
}

// Classify ORs the URL heuristics, the metadata signals and what the
// resolver already decided.
func (c *VideoClassifier) Classify(u *url.URL, prior bool, signals VideoSignals) bool {
	return prior || c.IsVideoURL(u) || signals.Present()
}
