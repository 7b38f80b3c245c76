package resolver

import (
	"context"
	"fmt"
	"net/url"

	"github.com/AlienServices/unfurl/internal/domain"
	"github.com/AlienServices/unfurl/internal/fetch"
	"github.com/AlienServices/unfurl/internal/meta"
)

// Generic downloads the page and reads its metadata. It is the fallback
// for unclassified hosts and for YouTube without an API key.
type Generic struct {
	d Deps
}

func NewGeneric(d Deps) *Generic {
	return &Generic{d: d.withDefaults()}
}

func (g *Generic) Platform() domain.Platform { return domain.PlatformGeneric }

// Resolve fails with domain.ErrGenericFetch when the page cannot be
// downloaded; there is nothing left to fall back to.
func (g *Generic) Resolve(ctx context.Context, u *url.URL) (*domain.LinkPreview, error) {
	ctx, cancel := context.WithTimeout(ctx, g.d.Timeouts.Generic)
	defer cancel()

	page, err := g.d.Fetch.HTML(ctx, u.String(), fetch.BotUserAgent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenericFetch, err)
	}

	m := meta.Extract(page.Body, pageBase(page, u))

	p := fromMeta(u, m)
	p.IsVideo = g.d.Videos.Classify(u, false, m.VideoSignals())
	if p.Title == "" {
		p.Title = u.Hostname()
	}
	return p, nil
}

// fromMeta maps extracted metadata onto a preview of u.
func fromMeta(u *url.URL, m meta.Meta) *domain.LinkPreview {
	return &domain.LinkPreview{
		URL:         u.String(),
		Title:       m.Title,
		Description: m.Description,
		ImageURL:    domain.Optional(m.Image),
		Domain:      u.Hostname(),
		FaviconURL:  domain.Optional(m.Favicon),
		Author:      m.Author,
		Site:        m.SiteName,
		PublishedAt: m.PublishedTime,
	}
}

// pageBase is the final page URL, or u when it cannot be parsed.
func pageBase(page *fetch.Page, u *url.URL) *url.URL {
	if base, err := url.Parse(page.URL); err == nil && base.Host != "" {
		return base
	}
	return u
}
