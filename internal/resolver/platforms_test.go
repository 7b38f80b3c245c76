package resolver

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/AlienServices/unfurl/internal/domain"
)

func TestXOEmbed(t *testing.T) {
	up := newUpstream(t)
	var gotURL string
	up.handle("publish.twitter.com/oembed", func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Query().Get("url")
		jsonBody(`{"author_name":"Jack","author_url":"https://twitter.com/jack",
			"html":"<blockquote class=\"twitter-tweet\"><p lang=\"en\">just setting up my twttr</p>&mdash; jack (@jack) <a href=\"https://twitter.com/jack/status/20\">March 21, 2006</a></blockquote>"}`)(w, r)
	})

	x := NewX(context.Background(), up.deps(), "")
	p, err := x.Resolve(context.Background(), mustURL(t, "https://x.com/jack/status/20"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if gotURL != "https://x.com/jack/status/20" {
		t.Errorf("oembed url param = %q", gotURL)
	}
	if p.Title != "Jack (@jack)" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.Description != "just setting up my twttr" {
		t.Errorf("Description = %q", p.Description)
	}
	if p.Author != "@jack" || p.MessageID != "20" || p.Stub {
		t.Errorf("Author = %q MessageID = %q Stub = %v", p.Author, p.MessageID, p.Stub)
	}
	if deref(p.EmbedURL) != "https://platform.twitter.com/embed/Tweet.html?id=20" {
		t.Errorf("EmbedURL = %q", deref(p.EmbedURL))
	}
	if p.IsVideo {
		t.Error("text tweet IsVideo = true")
	}
}

func TestXBearerAPI(t *testing.T) {
	up := newUpstream(t)
	var auth string
	up.handle("api.twitter.com/2/tweets/20", func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		jsonBody(`{"data":{"id":"20","text":"watch this","author_id":"12","created_at":"2006-03-21T20:50:14.000Z",
				"public_metrics":{"like_count":42,"impression_count":1000},
				"attachments":{"media_keys":["7_1"]}},
			"includes":{"users":[{"id":"12","name":"Jack","username":"jack","profile_image_url":"https://pbs.twimg.com/avatar.jpg"}],
				"media":[{"media_key":"7_1","type":"video","preview_image_url":"https://pbs.twimg.com/thumb.jpg"}]}}`)(w, r)
	})

	x := NewX(context.Background(), up.deps(), "secret-token")
	p, err := x.Resolve(context.Background(), mustURL(t, "https://twitter.com/jack/status/20"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if auth != "Bearer secret-token" {
		t.Errorf("Authorization = %q", auth)
	}
	if p.Title != "Jack (@jack)" || p.Description != "watch this" {
		t.Errorf("Title = %q Description = %q", p.Title, p.Description)
	}
	if !p.IsVideo {
		t.Error("video attachment IsVideo = false")
	}
	if deref(p.ImageURL) != "https://pbs.twimg.com/thumb.jpg" {
		t.Errorf("ImageURL = %q", deref(p.ImageURL))
	}
	if p.LikeCount == nil || *p.LikeCount != 42 {
		t.Errorf("LikeCount = %v", p.LikeCount)
	}
	if n := up.count("publish.twitter.com/oembed"); n != 0 {
		t.Errorf("oembed called %d times after api success", n)
	}
}

func TestXStub(t *testing.T) {
	up := newUpstream(t)
	up.handle("publish.twitter.com/oembed", status(http.StatusNotFound))
	up.handle("x.com/jack/status/20", status(http.StatusForbidden))

	d := up.deps()
	x := NewX(context.Background(), d, "")
	u := mustURL(t, "https://x.com/jack/status/20")

	p, err := x.Resolve(context.Background(), u)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !p.Stub || p.Title != "Tweet by @jack" || p.Platform != domain.PlatformX {
		t.Errorf("got %+v, want X stub", p)
	}
	if deref(p.EmbedURL) == "" {
		t.Error("stub lost the tweet embed")
	}
	if p.ImageURL != nil {
		t.Errorf("stub ImageURL = %q", deref(p.ImageURL))
	}

	if _, ok, _ := d.Cache.Get(context.Background(), "x:20"); ok {
		t.Error("stub was written to the platform cache")
	}

	if _, err := x.Resolve(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	if n := up.count("publish.twitter.com/oembed"); n != 2 {
		t.Errorf("oembed calls = %d, want 2 (stubs are not cached)", n)
	}
}

func TestRumbleOEmbed(t *testing.T) {
	up := newUpstream(t)
	up.handle("rumble.com/api/Media/oembed.json", jsonBody(`{"title":"Big Game Recap","author_name":"Sports Desk",
		"thumbnail_url":"https://sp.rmbl.ws/thumb.jpg",
		"html":"<iframe src=\"https://rumble.com/embed/v2abcd/\" width=\"640\"></iframe>"}`))

	r := NewRumble(up.deps())
	p, err := r.Resolve(context.Background(), mustURL(t, "https://rumble.com/v1xyz-big-game-recap.html"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if p.Title != "Big Game Recap" || p.Author != "Sports Desk" {
		t.Errorf("Title = %q Author = %q", p.Title, p.Author)
	}
	if deref(p.EmbedURL) != "https://rumble.com/embed/v2abcd/" {
		t.Errorf("EmbedURL = %q", deref(p.EmbedURL))
	}
	if !p.IsVideo || p.VideoID != "v1xyz" {
		t.Errorf("IsVideo = %v VideoID = %q", p.IsVideo, p.VideoID)
	}
}

func TestRumbleScrape(t *testing.T) {
	up := newUpstream(t)
	up.handle("rumble.com/api/Media/oembed.json", status(http.StatusInternalServerError))
	up.handle("rumble.com/v1xyz-big-game-recap.html", func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.UserAgent(), "Firefox") {
			http.Error(w, "bots not welcome", http.StatusForbidden)
			return
		}
		html(`<html><head>
			<meta property="og:title" content="Big Game Recap">
			<meta property="og:image" content="https://sp.rmbl.ws/thumb.jpg">
			<script type="application/ld+json">{"@type":"VideoObject","embedUrl":"https:\/\/rumble.com\/embed\/v2abcd\/"}</script>
		</head></html>`)(w, r)
	})

	r := NewRumble(up.deps())
	p, err := r.Resolve(context.Background(), mustURL(t, "https://rumble.com/v1xyz-big-game-recap.html"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p.Title != "Big Game Recap" || p.Stub {
		t.Errorf("Title = %q Stub = %v", p.Title, p.Stub)
	}
	if deref(p.EmbedURL) != "https://rumble.com/embed/v2abcd/" {
		t.Errorf("EmbedURL = %q", deref(p.EmbedURL))
	}
}

func TestRumbleStub(t *testing.T) {
	up := newUpstream(t)
	r := NewRumble(up.deps())

	p, err := r.Resolve(context.Background(), mustURL(t, "https://rumble.com/v1xyz-big-game-recap.html"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !p.Stub || p.Title != "Rumble video" || !p.IsVideo {
		t.Errorf("got %+v, want Rumble stub", p)
	}
	if p.EmbedURL != nil {
		t.Errorf("EmbedURL = %q, rumble embeds are never synthesized", deref(p.EmbedURL))
	}
}

func TestOdysee(t *testing.T) {
	up := newUpstream(t)
	up.handle("odysee.com/@alice:1/my-first-video:3", html(`<meta property="og:title" content="My First Video">
		<meta property="og:description" content="hello">`))

	o := NewOdysee(up.deps())
	p, err := o.Resolve(context.Background(), mustURL(t, "https://odysee.com/@alice:1/my-first-video:3"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p.Title != "My First Video" || !p.IsVideo {
		t.Errorf("Title = %q IsVideo = %v", p.Title, p.IsVideo)
	}
	if p.Channel != "@alice" || p.Author != "@alice" {
		t.Errorf("Channel = %q Author = %q", p.Channel, p.Author)
	}
	if deref(p.EmbedURL) != "https://odysee.com/embed/my-first-video:3" {
		t.Errorf("EmbedURL = %q", deref(p.EmbedURL))
	}
}

func TestOdyseeStub(t *testing.T) {
	up := newUpstream(t)
	o := NewOdysee(up.deps())

	p, err := o.Resolve(context.Background(), mustURL(t, "https://odysee.com/@alice:1/my-first-video:3"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !p.Stub || p.Title != "my first video" || !p.IsVideo {
		t.Errorf("got %+v, want Odysee stub", p)
	}
}

func TestTelegram(t *testing.T) {
	up := newUpstream(t)
	up.handle("t.me/durov/123", html(`<meta property="og:title" content="Pavel Durov">
		<meta property="og:description" content="Telegram update">
		<meta property="og:image" content="https://cdn4.telesco.pe/file/a.jpg">`))

	d := up.deps()
	tg := NewTelegram(d)
	p, err := tg.Resolve(context.Background(), mustURL(t, "https://t.me/durov/123"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p.Title != "Pavel Durov" || p.Channel != "durov" || p.MessageID != "123" {
		t.Errorf("Title = %q Channel = %q MessageID = %q", p.Title, p.Channel, p.MessageID)
	}
	if p.EmbedURL != nil || p.IsVideo {
		t.Errorf("EmbedURL = %q IsVideo = %v", deref(p.EmbedURL), p.IsVideo)
	}
	if _, ok, _ := d.Cache.Get(context.Background(), "telegram:durov/123"); !ok {
		t.Error("telegram message not cached under channel/message key")
	}
}

func TestTelegramVideoSignals(t *testing.T) {
	tests := []struct {
		name string
		tags string
	}{
		{"og:video", `<meta property="og:video" content="https://cdn4.telesco.pe/file/clip.mp4">`},
		{"twitter:player", `<meta name="twitter:player" content="https://t.me/durov/124?embed=1">`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newUpstream(t)
			up.handle("t.me/durov/124", html(`<meta property="og:title" content="Pavel Durov">`+tt.tags))

			p, err := NewTelegram(up.deps()).Resolve(context.Background(), mustURL(t, "https://t.me/durov/124"))
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if !p.IsVideo {
				t.Error("IsVideo = false, want true")
			}
			if p.EmbedURL != nil {
				t.Errorf("EmbedURL = %q, want none", deref(p.EmbedURL))
			}
		})
	}
}

func TestTelegramStub(t *testing.T) {
	up := newUpstream(t)
	tg := NewTelegram(up.deps())

	p, err := tg.Resolve(context.Background(), mustURL(t, "https://t.me/durov/123"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !p.Stub || p.Title != "Telegram post by @durov" || p.IsVideo {
		t.Errorf("got %+v, want Telegram stub", p)
	}
}

func TestSetFor(t *testing.T) {
	up := newUpstream(t)
	s, err := NewSet(context.Background(), up.deps(), Credentials{})
	if err != nil {
		t.Fatalf("NewSet() error = %v", err)
	}

	for _, p := range []domain.Platform{
		domain.PlatformGeneric, domain.PlatformYouTube, domain.PlatformX,
		domain.PlatformRumble, domain.PlatformOdysee, domain.PlatformTelegram,
	} {
		if got := s.For(p).Platform(); got != p {
			t.Errorf("For(%q).Platform() = %q", p, got)
		}
	}
	if got := s.For(domain.Platform("myspace")).Platform(); got != domain.PlatformGeneric {
		t.Errorf("unknown platform resolved by %q, want generic", got)
	}
}
