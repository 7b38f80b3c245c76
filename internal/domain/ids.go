package domain

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	youtubeIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	tweetIDRe   = regexp.MustCompile(`^[0-9]{1,25}$`)
	rumbleIDRe  = regexp.MustCompile(`^(v[0-9a-z]+)(?:-|$|\.html)`)
	numericRe   = regexp.MustCompile(`^[0-9]+$`)
)

// pathSegments splits the URL path, dropping empty segments.
func pathSegments(u *url.URL) []string {
	var out []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// YouTubeVideoID extracts the 11 character video id from any of the
// watch, short link, embed, shorts and live URL shapes.
func YouTubeVideoID(u *url.URL) (string, bool) {
	host := strings.ToLower(u.Hostname())
	segs := pathSegments(u)

	var candidate string
	switch {
	case HostMatches(host, "youtu.be"):
		if len(segs) > 0 {
			candidate = segs[0]
		}
	case u.Query().Get("v") != "":
		// watch?v=, also channel-qualified /user/x/watch?v= shapes
		candidate = u.Query().Get("v")
	case len(segs) >= 2:
		switch segs[0] {
		case "embed", "shorts", "live", "v", "e":
			candidate = segs[1]
		}
	}

	if youtubeIDRe.MatchString(candidate) {
		return candidate, true
	}
	return "", false
}

// TweetID extracts the status id and the author handle of a tweet URL.
// The handle is empty for /i/status/<id> links.
func TweetID(u *url.URL) (id, username string, ok bool) {
	segs := pathSegments(u)
	for i := 0; i+1 < len(segs); i++ {
		if segs[i] != "status" && segs[i] != "statuses" {
			continue
		}
		if !tweetIDRe.MatchString(segs[i+1]) {
			return "", "", false
		}
		if i > 0 && segs[i-1] != "i" && segs[i-1] != "web" {
			username = segs[i-1]
		}
		return segs[i+1], username, true
	}
	return "", "", false
}

// RumbleVideoID extracts the "v…" id from /v<id>-slug.html and /embed/v<id>/ URLs.
func RumbleVideoID(u *url.URL) (string, bool) {
	segs := pathSegments(u)
	if len(segs) == 0 {
		return "", false
	}
	seg := segs[0]
	if seg == "embed" && len(segs) > 1 {
		seg = segs[1]
	}
	m := rumbleIDRe.FindStringSubmatch(strings.ToLower(seg))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// OdyseeRef is the channel/claim pair of an Odysee URL.
// VideoID is the "<claim>:<hash>" last segment used by the embed player.
type OdyseeRef struct {
	Channel string
	VideoID string
}

// OdyseeVideoID parses /@channel:x/claim:y and /claim:y shapes.
func OdyseeVideoID(u *url.URL) (OdyseeRef, bool) {
	segs := pathSegments(u)
	if len(segs) == 0 {
		return OdyseeRef{}, false
	}
	var ref OdyseeRef
	if strings.HasPrefix(segs[0], "@") {
		ref.Channel = strings.SplitN(segs[0], ":", 2)[0]
		if len(segs) < 2 {
			return ref, false
		}
	}
	last := segs[len(segs)-1]
	if strings.HasPrefix(last, "@") || last == "embed" || last == "$" {
		return ref, false
	}
	ref.VideoID = last
	return ref, true
}

// TelegramMessage parses t.me/<channel>/<msg> and t.me/s/<channel>/<msg>.
func TelegramMessage(u *url.URL) (channel, messageID string, ok bool) {
	segs := pathSegments(u)
	if len(segs) > 0 && segs[0] == "s" {
		segs = segs[1:]
	}
	if len(segs) == 0 {
		return "", "", false
	}
	channel = segs[0]
	if len(segs) > 1 && numericRe.MatchString(segs[1]) {
		messageID = segs[1]
	}
	return channel, messageID, messageID != ""
}

// VimeoVideoID extracts the numeric id of vimeo.com/<id> and player URLs.
func VimeoVideoID(u *url.URL) (string, bool) {
	segs := pathSegments(u)
	for i := len(segs) - 1; i >= 0; i-- {
		if numericRe.MatchString(segs[i]) {
			return segs[i], true
		}
	}
	return "", false
}

// DailymotionVideoID handles dailymotion.com/video/<id>_slug and dai.ly/<id>.
func DailymotionVideoID(u *url.URL) (string, bool) {
	segs := pathSegments(u)
	var raw string
	switch {
	case HostMatches(strings.ToLower(u.Hostname()), "dai.ly") && len(segs) > 0:
		raw = segs[0]
	case len(segs) >= 2 && segs[0] == "video":
		raw = segs[1]
	case len(segs) >= 3 && segs[0] == "embed" && segs[1] == "video":
		raw = segs[2]
	}
	raw = strings.SplitN(raw, "_", 2)[0]
	if raw == "" {
		return "", false
	}
	return raw, true
}

// TwitchTarget is what a Twitch URL points at; exactly one field is set.
type TwitchTarget struct {
	Channel string
	Video   string
	Clip    string
}

// TwitchRef parses channel, /videos/<id> and clip URLs.
func TwitchRef(u *url.URL) (TwitchTarget, bool) {
	host := strings.ToLower(u.Hostname())
	segs := pathSegments(u)
	if HostMatches(host, "clips.twitch.tv") && len(segs) > 0 {
		return TwitchTarget{Clip: segs[0]}, true
	}
	switch {
	case len(segs) >= 2 && segs[0] == "videos":
		return TwitchTarget{Video: segs[1]}, true
	case len(segs) >= 3 && segs[1] == "clip":
		return TwitchTarget{Clip: segs[2]}, true
	case len(segs) >= 1:
		return TwitchTarget{Channel: segs[0]}, true
	}
	return TwitchTarget{}, false
}
