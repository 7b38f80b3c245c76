package domain

import (
	"net/url"
	"strings"
)

// Stub synthesizes a preview from the URL shape alone. It is the last
// step of every platform cascade and is never cached.
func Stub(u *url.URL, platform Platform) *LinkPreview {
	p := &LinkPreview{
		URL:      u.String(),
		Domain:   u.Hostname(),
		Platform: platform,
		Stub:     true,
	}

	switch platform {
	case PlatformYouTube:
		p.Title = "YouTube video"
		p.IsVideo = true
		if id, ok := YouTubeVideoID(u); ok {
			p.VideoID = id
		}
	case PlatformX:
		p.Title = "Post on X"
		if id, user, ok := TweetID(u); ok {
			p.MessageID = id
			if user != "" {
				p.Title = "Tweet by @" + user
				p.Author = "@" + user
			}
		}
		p.Site = "X"
	case PlatformRumble:
		p.Title = "Rumble video"
		p.IsVideo = true
		if id, ok := RumbleVideoID(u); ok {
			p.VideoID = id
		}
		p.Site = "Rumble"
	case PlatformOdysee:
		p.Title = "Odysee video"
		p.IsVideo = true
		if ref, ok := OdyseeVideoID(u); ok {
			p.Channel = ref.Channel
			p.VideoID = ref.VideoID
			if name := odyseeTitle(ref.VideoID); name != "" {
				p.Title = name
			}
		}
		p.Site = "Odysee"
	case PlatformTelegram:
		p.Title = "Telegram post"
		if ch, msg, ok := TelegramMessage(u); ok {
			p.Channel = ch
			p.MessageID = msg
			p.Title = "Telegram post by @" + ch
		}
		p.Site = "Telegram"
	default:
		p.Title = u.Hostname()
	}
	return p
}

// odyseeTitle turns "my-video-title:3" into "my video title".
func odyseeTitle(videoID string) string {
	name := strings.SplitN(videoID, ":", 2)[0]
	if n, err := url.PathUnescape(name); err == nil {
		name = n
	}
	return strings.TrimSpace(strings.ReplaceAll(name, "-", " "))
}
