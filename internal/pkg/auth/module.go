package auth

import (
	"github.com/polkiloo/marketpay/internal/config"
	"go.uber.org/fx"
)

// Module provides authentication primitives via fx.
var Module = fx.Options(
	fx.Provide(newTokenStrategy),
	fx.Provide(newWebhookVerifier),
)

type strategyParams struct {
	fx.In

	Config *config.Config
}

func newTokenStrategy(p strategyParams) Strategy {
	return NewHMACStrategy(p.Config.AuthSecret, Options{})
}

func newWebhookVerifier(p strategyParams) *WebhookVerifier {
	return NewWebhookVerifier(p.Config.GatewaySecret)
}
