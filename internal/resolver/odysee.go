package resolver

import (
	"context"
	"net/url"
	"strings"

	"github.com/AlienServices/unfurl/internal/domain"
	"github.com/AlienServices/unfurl/internal/fetch"
	"github.com/AlienServices/unfurl/internal/meta"
)

const odyseeFavicon = "https://odysee.com/public/favicon_128.png"

// Odysee has no oEmbed endpoint; pages are scraped, then stubbed.
type Odysee struct {
	d Deps
}

func NewOdysee(d Deps) *Odysee {
	return &Odysee{d: d.withDefaults()}
}

func (o *Odysee) Platform() domain.Platform { return domain.PlatformOdysee }

func (o *Odysee) Resolve(ctx context.Context, u *url.URL) (*domain.LinkPreview, error) {
	p := withPlatformCache(ctx, o.d, "odysee:"+u.String(), func() *domain.LinkPreview {
		p, _ := Cascade(ctx, o.d, domain.PlatformOdysee, u,
			Strategy{Name: "scrape", Timeout: o.d.Timeouts.Scrape, Run: o.scrape},
		)
		return p
	})
	if p == nil {
		p = domain.Stub(u, domain.PlatformOdysee)
	}
	return p, nil
}

func (o *Odysee) scrape(ctx context.Context, u *url.URL) (*domain.LinkPreview, error) {
	page, err := o.d.Fetch.HTML(ctx, u.String(), fetch.BotUserAgent)
	if err != nil {
		return nil, err
	}
	m := meta.Extract(page.Body, pageBase(page, u))
	if m.Empty() {
		return nil, nil
	}

	p := fromMeta(u, m)
	p.Platform = domain.PlatformOdysee
	p.Site = "Odysee"
	p.IsVideo = true
	if p.FaviconURL == nil {
		p.FaviconURL = domain.Optional(odyseeFavicon)
	}

	ref, hasVideo := domain.OdyseeVideoID(u)
	p.Channel = ref.Channel
	p.VideoID = ref.VideoID
	if p.Author == "" {
		p.Author = ref.Channel
	}

	embed := firstEmbed(m.EmbedURL, m.Iframe, m.TwitterPlayer)
	if embed == "" && hasVideo {
		embed = o.d.Embed.Odysee(ref.VideoID)
	}
	p.EmbedURL = domain.Optional(embed)
	return p, nil
}

// firstEmbed returns the first candidate pointing at an Odysee player.
func firstEmbed(candidates ...string) string {
	for _, c := range candidates {
		if strings.Contains(c, "odysee.com/") && strings.Contains(c, "/embed/") {
			return c
		}
	}
	return ""
}
