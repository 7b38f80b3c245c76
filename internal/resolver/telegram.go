package resolver

import (
	"context"
	"net/url"

	"github.com/AlienServices/unfurl/internal/domain"
	"github.com/AlienServices/unfurl/internal/fetch"
	"github.com/AlienServices/unfurl/internal/meta"
)

// Telegram scrapes public channel and message pages. Telegram has no
// embeddable player, so previews never carry an embed URL.
type Telegram struct {
	d Deps
}

func NewTelegram(d Deps) *Telegram {
	return &Telegram{d: d.withDefaults()}
}

func (t *Telegram) Platform() domain.Platform { return domain.PlatformTelegram }

func (t *Telegram) Resolve(ctx context.Context, u *url.URL) (*domain.LinkPreview, error) {
	var key string
	if ch, msg, ok := domain.TelegramMessage(u); ok {
		key = "telegram:" + ch + "/" + msg
	}

	p := withPlatformCache(ctx, t.d, key, func() *domain.LinkPreview {
		p, _ := Cascade(ctx, t.d, domain.PlatformTelegram, u,
			Strategy{Name: "scrape", Timeout: t.d.Timeouts.Scrape, Run: t.scrape},
		)
		return p
	})
	if p == nil {
		p = domain.Stub(u, domain.PlatformTelegram)
	}
	return p, nil
}

func (t *Telegram) scrape(ctx context.Context, u *url.URL) (*domain.LinkPreview, error) {
	page, err := t.d.Fetch.HTML(ctx, u.String(), fetch.BotUserAgent)
	if err != nil {
		return nil, err
	}
	m := meta.Extract(page.Body, pageBase(page, u))
	if m.Empty() {
		return nil, nil
	}

	p := fromMeta(u, m)
	p.Platform = domain.PlatformTelegram
	p.Site = "Telegram"
	p.IsVideo = m.VideoSignals().Present()
	p.Channel, p.MessageID, _ = domain.TelegramMessage(u)
	return p, nil
}
