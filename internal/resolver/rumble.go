package resolver

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/AlienServices/unfurl/internal/domain"
	"github.com/AlienServices/unfurl/internal/fetch"
	"github.com/AlienServices/unfurl/internal/meta"
	"github.com/PuerkitoBio/goquery"
)

const (
	rumbleOEmbedURL = "https://rumble.com/api/Media/oembed.json"
	rumbleFavicon   = "https://rumble.com/favicon.ico"
)

// rumbleEmbedRe finds player URLs inlined in page scripts.
var rumbleEmbedRe = regexp.MustCompile(`https?:\\?/\\?/rumble\.com\\?/embed\\?/[A-Za-z0-9]+\\?/?`)

// Rumble resolves videos through oEmbed, then a page scrape, then a stub.
// Embed URLs only ever come from Rumble's own data: the embed id is not
// derivable from the watch page path.
type Rumble struct {
	d Deps
}

func NewRumble(d Deps) *Rumble {
	return &Rumble{d: d.withDefaults()}
}

func (r *Rumble) Platform() domain.Platform { return domain.PlatformRumble }

func (r *Rumble) Resolve(ctx context.Context, u *url.URL) (*domain.LinkPreview, error) {
	p := withPlatformCache(ctx, r.d, "rumble:"+u.String(), func() *domain.LinkPreview {
		p, _ := Cascade(ctx, r.d, domain.PlatformRumble, u,
			Strategy{Name: "oembed", Timeout: r.d.Timeouts.API, Run: r.fromOEmbed},
			Strategy{Name: "scrape", Timeout: r.d.Timeouts.Scrape, Run: r.scrape},
		)
		return p
	})
	if p == nil {
		p = domain.Stub(u, domain.PlatformRumble)
	}
	return p, nil
}

type rumbleOEmbedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
	HTML         string `json:"html"`
}

func (r *Rumble) fromOEmbed(ctx context.Context, u *url.URL) (*domain.LinkPreview, error) {
	var resp rumbleOEmbedResponse
	if err := r.d.Fetch.JSON(ctx, rumbleOEmbedURL+"?url="+url.QueryEscape(u.String()), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Title == "" && resp.HTML == "" {
		return nil, nil
	}

	p := r.base(u)
	p.Title = meta.Clean(resp.Title, meta.MaxTitleRunes)
	p.Author = meta.Clean(resp.AuthorName, meta.MaxTitleRunes)
	p.Channel = p.Author
	p.ImageURL = domain.Optional(meta.Resolve(u, resp.ThumbnailURL))
	p.EmbedURL = domain.Optional(iframeSrc(resp.HTML))
	return p, nil
}

func (r *Rumble) scrape(ctx context.Context, u *url.URL) (*domain.LinkPreview, error) {
	page, err := r.d.Fetch.HTML(ctx, u.String(), fetch.BrowserUserAgent)
	if err != nil {
		return nil, err
	}
	m := meta.Extract(page.Body, pageBase(page, u))
	if m.Empty() {
		return nil, nil
	}

	p := r.base(u)
	p.Title = m.Title
	p.Description = m.Description
	p.ImageURL = domain.Optional(m.Image)
	p.Author = m.Author
	p.PublishedAt = m.PublishedTime
	if m.Favicon != "" {
		p.FaviconURL = domain.Optional(m.Favicon)
	}

	embed := m.EmbedURL
	if embed == "" && strings.Contains(m.Iframe, "rumble.com/embed/") {
		embed = m.Iframe
	}
	if embed == "" {
		embed = strings.ReplaceAll(rumbleEmbedRe.FindString(page.Body), `\/`, "/")
	}
	p.EmbedURL = domain.Optional(embed)
	return p, nil
}

func (r *Rumble) base(u *url.URL) *domain.LinkPreview {
	p := &domain.LinkPreview{
		URL:        u.String(),
		Domain:     u.Hostname(),
		FaviconURL: domain.Optional(rumbleFavicon),
		IsVideo:    true,
		Platform:   domain.PlatformRumble,
		Site:       "Rumble",
	}
	if id, ok := domain.RumbleVideoID(u); ok {
		p.VideoID = id
	}
	return p
}

// iframeSrc returns the src of the first iframe in an oEmbed html fragment.
func iframeSrc(fragment string) string {
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return meta.Resolve(nil, doc.Find("iframe[src]").First().AttrOr("src", ""))
}
