package notifications

import (
	"context"
	"net/url"
	"strings"
)

type EffectKind string

const (
	// EffectRedirect sends the user to URL.
	EffectRedirect EffectKind = "redirect"
	// EffectOpenDetail opens the history entry HistoryUUID.
	EffectOpenDetail EffectKind = "open_detail"
)

const (
	paymentPlatform = "CRYPTOMUS"
	thankYouPath    = "/profile/thank-you"
)

type Effect struct {
	Kind        EffectKind
	URL         string
	HistoryUUID string
}

// EffectHandler performs effects produced by the feed.
type EffectHandler interface {
	Handle(ctx context.Context, e Effect)
}

type EffectHandlerFunc func(ctx context.Context, e Effect)

func (f EffectHandlerFunc) Handle(ctx context.Context, e Effect) {
	f(ctx, e)
}

// EffectsFor maps a freshly arrived notification to the actions a client
// takes for it. Settled crypto payments redirect to the thank-you page and
// finished videos open their detail view.
func EffectsFor(n Notification) []Effect {
	var effects []Effect
	if (n.Status == StatusSuccess || n.Status == StatusPaid) && strings.EqualFold(n.Platform, paymentPlatform) {
		target := thankYouPath + "?payment=success&id=" + url.QueryEscape(n.ExternalOrderID)
		effects = append(effects, Effect{Kind: EffectRedirect, URL: target})
	}
	if n.Status == StatusSuccess && n.Kind() == TypeVideo {
		effects = append(effects, Effect{Kind: EffectOpenDetail, HistoryUUID: n.UUID})
	}
	return effects
}
