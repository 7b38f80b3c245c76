package domain

import (
	"net/url"
	"strings"
)

// EmbedBuilder produces player URLs. Players that check who frames them
// get the public origin (or its host) of the embedding site.
type EmbedBuilder struct {
	origin string
	host   string
}

// NewEmbedBuilder takes the public origin, e.g. "https://app.example.com".
func NewEmbedBuilder(publicOrigin string) *EmbedBuilder {
	origin := strings.TrimRight(strings.TrimSpace(publicOrigin), "/")
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	return &EmbedBuilder{origin: origin, host: host}
}

func (b *EmbedBuilder) Origin() string { return b.origin }

func (b *EmbedBuilder) YouTube(id string) string {
	return "https://www.youtube.com/embed/" + url.PathEscape(id) + "?origin=" + url.QueryEscape(b.origin)
}

func (b *EmbedBuilder) Vimeo(id string) string {
	return "https://player.vimeo.com/video/" + url.PathEscape(id) + "?origin=" + url.QueryEscape(b.origin)
}

func (b *EmbedBuilder) Dailymotion(id string) string {
	return "https://www.dailymotion.com/embed/video/" + url.PathEscape(id) + "?origin=" + url.QueryEscape(b.origin)
}

func (b *EmbedBuilder) Twitch(t TwitchTarget) string {
	parent := "parent=" + url.QueryEscape(b.host)
	switch {
	case t.Clip != "":
		return "https://clips.twitch.tv/embed?clip=" + url.QueryEscape(t.Clip) + "&" + parent
	case t.Video != "":
		return "https://player.twitch.tv/?video=" + url.QueryEscape(t.Video) + "&" + parent
	case t.Channel != "":
		return "https://player.twitch.tv/?channel=" + url.QueryEscape(t.Channel) + "&" + parent
	}
	return ""
}

func (b *EmbedBuilder) Tweet(id string) string {
	return "https://platform.twitter.com/embed/Tweet.html?id=" + url.QueryEscape(id)
}

func (b *EmbedBuilder) Odysee(videoID string) string {
	return "https://odysee.com/embed/" + url.PathEscape(videoID)
}

// Build returns the embed URL for u, or "" when the platform has no
// embeddable player. Rumble is never synthesized: its embed ids differ
// from the ids in page URLs and are only known from upstream data.
func (b *EmbedBuilder) Build(u *url.URL, platform Platform) string {
	switch platform {
	case PlatformYouTube:
		if id, ok := YouTubeVideoID(u); ok {
			return b.YouTube(id)
		}
		return ""
	case PlatformX:
		if id, _, ok := TweetID(u); ok {
			return b.Tweet(id)
		}
		return ""
	case PlatformOdysee:
		if ref, ok := OdyseeVideoID(u); ok {
			return b.Odysee(ref.VideoID)
		}
		return ""
	case PlatformRumble, PlatformTelegram:
		return ""
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case HostMatches(host, "vimeo.com"):
		if id, ok := VimeoVideoID(u); ok {
			return b.Vimeo(id)
		}
	case HostMatches(host, "dailymotion.com"), HostMatches(host, "dai.ly"):
		if id, ok := DailymotionVideoID(u); ok {
			return b.Dailymotion(id)
		}
	case HostMatches(host, "twitch.tv"):
		if t, ok := TwitchRef(u); ok {
			return b.Twitch(t)
		}
	}
	return ""
}
