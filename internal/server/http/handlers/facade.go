package handlers

import (
	"context"
	"time"

	"github.com/polkiloo/marketpay/internal/domain/model"
	"github.com/polkiloo/marketpay/internal/usecase"
)

// OrderFacade encapsulates order operations exposed via HTTP.
type OrderFacade interface {
	Checkout(ctx context.Context, userID int64, input usecase.CheckoutInput) (*model.Order, error)
	Orders(ctx context.Context, userID int64) ([]model.Order, error)
	Order(ctx context.Context, userID, orderID int64) (*model.Order, error)
}

// PaymentFacade drives payment attempts and reconciliation from the shopper side.
type PaymentFacade interface {
	InitPayment(ctx context.Context, userID, orderID int64, channel model.PaymentChannel) (*usecase.AttemptResult, error)
	VerifyPayment(ctx context.Context, userID int64, reference string) (*model.Payment, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

// AdminFacade exposes operator-only operations.
type AdminFacade interface {
	ApprovePayment(ctx context.Context, reference string) (*model.Payment, error)
	RefundPayment(ctx context.Context, reference string) (*model.Payment, error)
	Profit(ctx context.Context, mode model.ProfitMode, from, to time.Time) (*model.ProfitReport, error)
}

// MarketFacade aggregates the full set of operations used across handlers.
type MarketFacade interface {
	OrderFacade
	PaymentFacade
	AdminFacade

	ParseToken(token string) (int64, error)
	HealthCheck(ctx context.Context) error
}
