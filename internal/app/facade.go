package app

import (
	"context"
	"time"

	"github.com/polkiloo/marketpay/internal/domain/model"
	"github.com/polkiloo/marketpay/internal/pkg/auth"
	"github.com/polkiloo/marketpay/internal/usecase"
)

// HealthChecker reports storage availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// MarketFacade aggregates the application's use cases behind one surface for
// the HTTP layer and the dispatch worker.
type MarketFacade struct {
	orders      *usecase.OrderUseCase
	payments    *usecase.PaymentUseCase
	reconcile   *usecase.ReconcileUseCase
	fulfillment *usecase.FulfillmentUseCase
	profit      *usecase.ProfitUseCase
	tokens      auth.Strategy
	health      HealthChecker
}

func NewMarketFacade(
	orders *usecase.OrderUseCase,
	payments *usecase.PaymentUseCase,
	reconcile *usecase.ReconcileUseCase,
	fulfillment *usecase.FulfillmentUseCase,
	profit *usecase.ProfitUseCase,
	tokens auth.Strategy,
	health HealthChecker,
) *MarketFacade {
	return &MarketFacade{
		orders:      orders,
		payments:    payments,
		reconcile:   reconcile,
		fulfillment: fulfillment,
		profit:      profit,
		tokens:      tokens,
		health:      health,
	}
}

func (f *MarketFacade) ParseToken(token string) (int64, error) {
	return f.tokens.ParseToken(token)
}

func (f *MarketFacade) Checkout(ctx context.Context, userID int64, input usecase.CheckoutInput) (*model.Order, error) {
	return f.orders.Checkout(ctx, userID, input)
}

func (f *MarketFacade) Orders(ctx context.Context, userID int64) ([]model.Order, error) {
	return f.orders.ListByUser(ctx, userID)
}

func (f *MarketFacade) Order(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	return f.orders.GetOwned(ctx, userID, orderID)
}

func (f *MarketFacade) InitPayment(ctx context.Context, userID, orderID int64, channel model.PaymentChannel) (*usecase.AttemptResult, error) {
	return f.payments.InitAttempt(ctx, userID, orderID, channel)
}

func (f *MarketFacade) VerifyPayment(ctx context.Context, userID int64, reference string) (*model.Payment, error) {
	return f.reconcile.VerifyPayment(ctx, userID, reference)
}

func (f *MarketFacade) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	return f.reconcile.HandleWebhook(ctx, body, signature)
}

func (f *MarketFacade) ApprovePayment(ctx context.Context, reference string) (*model.Payment, error) {
	return f.reconcile.ApprovePayment(ctx, reference)
}

func (f *MarketFacade) RefundPayment(ctx context.Context, reference string) (*model.Payment, error) {
	return f.reconcile.RefundPayment(ctx, reference)
}

func (f *MarketFacade) Profit(ctx context.Context, mode model.ProfitMode, from, to time.Time) (*model.ProfitReport, error) {
	return f.profit.ComputeWindow(ctx, mode, from, to)
}

func (f *MarketFacade) OrdersForDispatch(ctx context.Context, limit int) ([]model.Order, error) {
	return f.orders.OrdersForDispatch(ctx, limit)
}

func (f *MarketFacade) DispatchOrder(ctx context.Context, order *model.Order) error {
	return f.fulfillment.HandlePaidOrder(ctx, order)
}

func (f *MarketFacade) FinishDispatch(ctx context.Context, orderID int64, ok bool) error {
	return f.orders.FinishDispatch(ctx, orderID, ok)
}

func (f *MarketFacade) HealthCheck(ctx context.Context) error {
	return f.health.HealthCheck(ctx)
}
