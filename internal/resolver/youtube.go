package resolver

import (
	"context"
	"fmt"
	"net/url"

	"github.com/AlienServices/unfurl/internal/domain"
	"github.com/AlienServices/unfurl/internal/logger"
	"github.com/AlienServices/unfurl/internal/meta"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const youtubeFavicon = "https://www.youtube.com/favicon.ico"

// YouTube reads video metadata from the Data API. Without a key, an id or
// an API answer it hands the URL to the generic resolver.
type YouTube struct {
	d       Deps
	svc     *youtube.Service
	apiKey  string
	generic *Generic
}

// NewYouTube creates the resolver. The API client shares the SSRF-safe
// HTTP client; the key is sent per call.
func NewYouTube(ctx context.Context, d Deps, apiKey string, generic *Generic) (*YouTube, error) {
	d = d.withDefaults()
	y := &YouTube{d: d, apiKey: apiKey, generic: generic}
	if apiKey == "" {
		return y, nil
	}

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(d.Fetch.HTTPClient()))
	if err != nil {
		return nil, fmt.Errorf("creating youtube client: %w", err)
	}
	y.svc = svc
	return y, nil
}

func (y *YouTube) Platform() domain.Platform { return domain.PlatformYouTube }

func (y *YouTube) Resolve(ctx context.Context, u *url.URL) (*domain.LinkPreview, error) {
	id, ok := domain.YouTubeVideoID(u)
	if !ok || y.svc == nil {
		return y.generic.Resolve(ctx, u)
	}

	p := withPlatformCache(ctx, y.d, "youtube:"+id, func() *domain.LinkPreview {
		p, _ := Cascade(ctx, y.d, domain.PlatformYouTube, u,
			Strategy{Name: "data-api", Timeout: y.d.Timeouts.API, Run: func(ctx context.Context, u *url.URL) (*domain.LinkPreview, error) {
				return y.videosList(ctx, u, id)
			}},
		)
		return p
	})
	if p != nil {
		return p, nil
	}

	y.d.Log.Debug("youtube api unavailable, falling back to generic", logger.String("video_id", id))
	return y.generic.Resolve(ctx, u)
}

func (y *YouTube) videosList(ctx context.Context, u *url.URL, id string) (*domain.LinkPreview, error) {
	resp, err := y.svc.Videos.List([]string{"snippet", "statistics"}).
		Id(id).
		Context(ctx).
		Do(googleapi.QueryParameter("key", y.apiKey))
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, nil
	}

	v := resp.Items[0]
	sn := v.Snippet
	p := &domain.LinkPreview{
		URL:         u.String(),
		Title:       meta.Clean(sn.Title, meta.MaxTitleRunes),
		Description: meta.Clean(sn.Description, meta.MaxDescriptionRunes),
		ImageURL:    domain.Optional(bestThumbnail(sn.Thumbnails)),
		Domain:      u.Hostname(),
		FaviconURL:  domain.Optional(youtubeFavicon),
		IsVideo:     true,
		EmbedURL:    domain.Optional(y.d.Embed.YouTube(id)),
		Platform:    domain.PlatformYouTube,
		Author:      sn.ChannelTitle,
		Channel:     sn.ChannelTitle,
		Site:        "YouTube",
		VideoID:     id,
		PublishedAt: sn.PublishedAt,
	}
	if st := v.Statistics; st != nil {
		p.ViewCount = domain.Int64(int64(st.ViewCount))
		p.LikeCount = domain.Int64(int64(st.LikeCount))
	}
	return p, nil
}

// bestThumbnail prefers the largest rendition.
func bestThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
