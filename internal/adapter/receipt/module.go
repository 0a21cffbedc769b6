package receipt

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/marketpay/internal/config"
)

// Module exposes the receipt issuer to the fx graph.
var Module = fx.Provide(newIssuer)

type issuerParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newIssuer(p issuerParams) (Issuer, error) {
	if p.Config.ReceiptAddress == "" {
		p.Logger.Warn("receipt service not configured, receipts disabled")
		return NoopIssuer{}, nil
	}
	return NewHTTPIssuer(p.Config.ReceiptAddress, p.Logger)
}
