package resolver

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/AlienServices/unfurl/internal/domain"
	"github.com/AlienServices/unfurl/internal/fetch"
	"github.com/AlienServices/unfurl/internal/meta"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/oauth2"
)

const (
	xAPIBase   = "https://api.twitter.com/2"
	xOEmbedURL = "https://publish.twitter.com/oembed"
	xFavicon   = "https://abs.twimg.com/favicons/twitter.3.ico"
)

// X resolves posts through API v2, then oEmbed, then a browser-like
// scrape, then a stub.
type X struct {
	d   Deps
	api *fetch.Client // nil without a bearer token
}

// NewX creates the resolver. The bearer token is attached by an oauth2
// transport layered over the shared HTTP client.
func NewX(ctx context.Context, d Deps, bearerToken string) *X {
	d = d.withDefaults()
	x := &X{d: d}
	if bearerToken == "" {
		return x
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, d.Fetch.HTTPClient())
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: bearerToken,
		TokenType:   "Bearer",
	}))
	x.api = fetch.NewWithHTTPClient(hc, 0)
	return x
}

func (x *X) Platform() domain.Platform { return domain.PlatformX }

func (x *X) Resolve(ctx context.Context, u *url.URL) (*domain.LinkPreview, error) {
	id, username, ok := domain.TweetID(u)
	if !ok {
		p, _ := Cascade(ctx, x.d, domain.PlatformX, u, x.scrape())
		if p == nil {
			p = domain.Stub(u, domain.PlatformX)
		}
		return p, nil
	}

	p := withPlatformCache(ctx, x.d, "x:"+id, func() *domain.LinkPreview {
		p, _ := Cascade(ctx, x.d, domain.PlatformX, u,
			Strategy{Name: "api-v2", Timeout: x.d.Timeouts.API, Run: func(ctx context.Context, u *url.URL) (*domain.LinkPreview, error) {
				return x.fromAPI(ctx, u, id)
			}},
			Strategy{Name: "oembed", Timeout: x.d.Timeouts.API, Run: func(ctx context.Context, u *url.URL) (*domain.LinkPreview, error) {
				return x.fromOEmbed(ctx, u, id, username)
			}},
			x.scrape(),
		)
		return p
	})
	if p == nil {
		p = domain.Stub(u, domain.PlatformX)
		p.EmbedURL = domain.Optional(x.d.Embed.Tweet(id))
	}
	return p, nil
}

type xTweetResponse struct {
	Data struct {
		ID            string `json:"id"`
		Text          string `json:"text"`
		AuthorID      string `json:"author_id"`
		CreatedAt     string `json:"created_at"`
		PublicMetrics struct {
			LikeCount       int64 `json:"like_count"`
			ImpressionCount int64 `json:"impression_count"`
		} `json:"public_metrics"`
		Attachments struct {
			MediaKeys []string `json:"media_keys"`
		} `json:"attachments"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID              string `json:"id"`
			Name            string `json:"name"`
			Username        string `json:"username"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"users"`
		Media []struct {
			MediaKey        string `json:"media_key"`
			Type            string `json:"type"`
			URL             string `json:"url"`
			PreviewImageURL string `json:"preview_image_url"`
		} `json:"media"`
	} `json:"includes"`
}

func (x *X) fromAPI(ctx context.Context, u *url.URL, id string) (*domain.LinkPreview, error) {
	if x.api == nil {
		return nil, fmt.Errorf("no bearer token configured")
	}

	q := url.Values{}
	q.Set("expansions", "author_id,attachments.media_keys")
	q.Set("tweet.fields", "created_at,public_metrics,text")
	q.Set("user.fields", "name,username,profile_image_url")
	q.Set("media.fields", "type,url,preview_image_url")

	var resp xTweetResponse
	if err := x.api.JSON(ctx, xAPIBase+"/tweets/"+url.PathEscape(id)+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data.ID == "" {
		return nil, nil
	}

	p := &domain.LinkPreview{
		URL:         u.String(),
		Description: meta.Clean(resp.Data.Text, meta.MaxDescriptionRunes),
		Domain:      u.Hostname(),
		FaviconURL:  domain.Optional(xFavicon),
		Platform:    domain.PlatformX,
		Site:        "X",
		MessageID:   id,
		PublishedAt: resp.Data.CreatedAt,
		EmbedURL:    domain.Optional(x.d.Embed.Tweet(id)),
	}
	if n := resp.Data.PublicMetrics.LikeCount; n > 0 {
		p.LikeCount = domain.Int64(n)
	}
	if n := resp.Data.PublicMetrics.ImpressionCount; n > 0 {
		p.ViewCount = domain.Int64(n)
	}

	var avatar string
	for _, usr := range resp.Includes.Users {
		if usr.ID == resp.Data.AuthorID {
			p.Author = "@" + usr.Username
			p.Title = xTitle(usr.Name, usr.Username)
			avatar = usr.ProfileImageURL
		}
	}
	if p.Title == "" {
		p.Title = "Post on X"
	}

	var signals domain.VideoSignals
	var image string
	for _, m := range resp.Includes.Media {
		switch m.Type {
		case "video", "animated_gif":
			signals.MediaVideo = true
			if image == "" {
				image = m.PreviewImageURL
			}
		case "photo":
			if image == "" {
				image = m.URL
			}
		}
	}
	if image == "" {
		image = avatar
	}
	p.ImageURL = domain.Optional(image)
	p.IsVideo = x.d.Videos.Classify(u, false, signals)
	return p, nil
}

type xOEmbedResponse struct {
	AuthorName string `json:"author_name"`
	AuthorURL  string `json:"author_url"`
	HTML       string `json:"html"`
}

func (x *X) fromOEmbed(ctx context.Context, u *url.URL, id, username string) (*domain.LinkPreview, error) {
	q := url.Values{}
	q.Set("url", u.String())
	q.Set("omit_script", "true")
	q.Set("dnt", "true")

	var resp xOEmbedResponse
	if err := x.d.Fetch.JSON(ctx, xOEmbedURL+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.HTML == "" {
		return nil, nil
	}

	if au, err := url.Parse(resp.AuthorURL); err == nil {
		if segs := strings.Split(strings.Trim(au.Path, "/"), "/"); segs[0] != "" {
			username = segs[0]
		}
	}

	text, hasVideo := tweetText(resp.HTML)
	p := &domain.LinkPreview{
		URL:         u.String(),
		Title:       xTitle(resp.AuthorName, username),
		Description: meta.Clean(text, meta.MaxDescriptionRunes),
		Domain:      u.Hostname(),
		FaviconURL:  domain.Optional(xFavicon),
		Platform:    domain.PlatformX,
		Site:        "X",
		MessageID:   id,
		EmbedURL:    domain.Optional(x.d.Embed.Tweet(id)),
	}
	if username != "" {
		p.Author = "@" + username
	}
	p.IsVideo = x.d.Videos.Classify(u, false, domain.VideoSignals{MediaVideo: hasVideo})
	return p, nil
}

// tweetText returns the paragraph text of an oEmbed blockquote and
// whether it links an attached video. oEmbed only links media, so the
// link shape is the only video signal it carries.
func tweetText(fragment string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", false
	}
	text := doc.Find("blockquote p").First().Text()
	video := false
	doc.Find("blockquote a[href]").Each(func(_ int, a *goquery.Selection) {
		if strings.Contains(a.AttrOr("href", ""), "/video/") {
			video = true
		}
	})
	return text, video
}

func (x *X) scrape() Strategy {
	return Strategy{Name: "scrape", Timeout: x.d.Timeouts.Scrape, Run: func(ctx context.Context, u *url.URL) (*domain.LinkPreview, error) {
		page, err := x.d.Fetch.HTML(ctx, u.String(), fetch.BrowserUserAgent)
		if err != nil {
			return nil, err
		}
		m := meta.Extract(page.Body, pageBase(page, u))
		if m.Empty() {
			return nil, nil
		}
		p := fromMeta(u, m)
		p.Platform = domain.PlatformX
		p.Site = "X"
		p.IsVideo = x.d.Videos.Classify(u, false, m.VideoSignals())
		if id, _, ok := domain.TweetID(u); ok {
			p.MessageID = id
			p.EmbedURL = domain.Optional(x.d.Embed.Tweet(id))
		}
		return p, nil
	}}
}

func xTitle(name, username string) string {
	switch {
	case name != "" && username != "":
		return meta.Clean(name, meta.MaxTitleRunes) + " (@" + username + ")"
	case username != "":
		return "Tweet by @" + username
	case name != "":
		return meta.Clean(name, meta.MaxTitleRunes)
	}
	return "Post on X"
}
