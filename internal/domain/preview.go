package domain

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

// Platform tags the resolver family that produced a preview.
// The generic web is the empty platform and is serialized as null.
type Platform string

const (
	PlatformGeneric  Platform = ""
	PlatformYouTube  Platform = "youtube"
	PlatformX        Platform = "x"
	PlatformRumble   Platform = "rumble"
	PlatformOdysee   Platform = "odysee"
	PlatformTelegram Platform = "telegram"
)

// String returns the platform name, "generic" for the empty platform.
func (p Platform) String() string {
	if p == PlatformGeneric {
		return "generic"
	}
	return string(p)
}

func (p Platform) MarshalJSON() ([]byte, error) {
	if p == PlatformGeneric {
		return []byte("null"), nil
	}
	return json.Marshal(string(p))
}

func (p *Platform) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = PlatformGeneric
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*p = Platform(s)
	return nil
}

// CachedAtLayout is the ISO-8601 layout used for LinkPreview.CachedAt.
const CachedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// LinkPreview is the normalized, renderable result of resolving a URL.
type LinkPreview struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageURL    *string  `json:"imageUrl"`
	Domain      string   `json:"domain"`
	FaviconURL  *string  `json:"faviconUrl"`
	IsVideo     bool     `json:"isVideo"`
	IsImage     bool     `json:"isImage,omitempty"`
	EmbedURL    *string  `json:"embedUrl"`
	Platform    Platform `json:"platform"`

	Author      string `json:"author,omitempty"`
	Site        string `json:"site,omitempty"`
	Channel     string `json:"channel,omitempty"`
	VideoID     string `json:"videoId,omitempty"`
	MessageID   string `json:"messageId,omitempty"`
	ViewCount   *int64 `json:"viewCount,omitempty"`
	LikeCount   *int64 `json:"likeCount,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`

	CachedAt string `json:"cachedAt,omitempty"`

	// Stub marks a preview synthesized from the URL shape alone.
	// Stubs are returned to callers but never written to a cache.
	Stub bool `json:"-"`
}

// Optional returns nil for an empty string, a pointer to s otherwise.
func Optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ImagePreview is the fast-path preview for direct image URLs.
// Images are embedded by the caller, so nothing is fetched.
func ImagePreview(u *url.URL, now time.Time) *LinkPreview {
	return &LinkPreview{
		URL:      u.String(),
		Domain:   u.Hostname(),
		IsImage:  true,
		IsVideo:  false,
		CachedAt: now.UTC().Format(CachedAtLayout),
	}
}
