package supplier

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/marketpay/internal/config"
)

// Module exposes the supplier API client and notifier to the fx graph.
var Module = fx.Options(
	fx.Provide(newClient),
	fx.Provide(
		func(c *HTTPClient) APIClient { return c },
		func(c *HTTPClient) Notifier { return c },
	),
)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (*HTTPClient, error) {
	return NewHTTPClient(p.Config.SupplierAPIAddress, p.Config.NotifyAddress, p.Logger)
}
