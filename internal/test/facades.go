package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/marketpay/internal/domain/model"
	"github.com/polkiloo/marketpay/internal/usecase"
)

// MarketFacadeStub provides controllable behaviour for HTTP layer tests.
type MarketFacadeStub struct {
	CheckoutFn func(context.Context, int64, usecase.CheckoutInput) (*model.Order, error)
	OrdersFn   func(context.Context, int64) ([]model.Order, error)
	OrderFn    func(context.Context, int64, int64) (*model.Order, error)
	InitFn     func(context.Context, int64, int64, model.PaymentChannel) (*usecase.AttemptResult, error)
	VerifyFn   func(context.Context, int64, string) (*model.Payment, error)
	WebhookFn  func(context.Context, []byte, string) error
	ApproveFn  func(context.Context, string) (*model.Payment, error)
	RefundFn   func(context.Context, string) (*model.Payment, error)
	ProfitFn   func(context.Context, model.ProfitMode, time.Time, time.Time) (*model.ProfitReport, error)
	ParseFn    func(string) (int64, error)
	HealthFn   func(context.Context) error
}

// Checkout delegates to the override or returns a minimal pending order.
func (s MarketFacadeStub) Checkout(ctx context.Context, userID int64, input usecase.CheckoutInput) (*model.Order, error) {
	if s.CheckoutFn != nil {
		return s.CheckoutFn(ctx, userID, input)
	}
	return &model.Order{ID: 1, UserID: userID, Status: model.OrderStatusPending}, nil
}

// Orders returns predefined orders for the given user.
func (s MarketFacadeStub) Orders(ctx context.Context, userID int64) ([]model.Order, error) {
	if s.OrdersFn != nil {
		return s.OrdersFn(ctx, userID)
	}
	return []model.Order{{ID: 1, UserID: userID}}, nil
}

// Order returns a single owned order.
func (s MarketFacadeStub) Order(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, userID, orderID)
	}
	return &model.Order{ID: orderID, UserID: userID}, nil
}

// InitPayment starts or resumes a payment attempt.
func (s MarketFacadeStub) InitPayment(ctx context.Context, userID, orderID int64, channel model.PaymentChannel) (*usecase.AttemptResult, error) {
	if s.InitFn != nil {
		return s.InitFn(ctx, userID, orderID, channel)
	}
	return &usecase.AttemptResult{Payment: &model.Payment{
		Reference: "PM-test",
		OrderID:   orderID,
		UserID:    userID,
		Channel:   channel,
		Amount:    decimal.New(10000, -2),
		Status:    model.PaymentStatusPending,
	}}, nil
}

// VerifyPayment returns the configured reconciliation outcome.
func (s MarketFacadeStub) VerifyPayment(ctx context.Context, userID int64, reference string) (*model.Payment, error) {
	if s.VerifyFn != nil {
		return s.VerifyFn(ctx, userID, reference)
	}
	return &model.Payment{Reference: reference, UserID: userID, Status: model.PaymentStatusPaid}, nil
}

// HandleWebhook delegates to the override or acks.
func (s MarketFacadeStub) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if s.WebhookFn != nil {
		return s.WebhookFn(ctx, body, signature)
	}
	return nil
}

// ApprovePayment settles a manual attempt in tests.
func (s MarketFacadeStub) ApprovePayment(ctx context.Context, reference string) (*model.Payment, error) {
	if s.ApproveFn != nil {
		return s.ApproveFn(ctx, reference)
	}
	return &model.Payment{Reference: reference, Status: model.PaymentStatusPaid}, nil
}

// RefundPayment refunds a settled attempt in tests.
func (s MarketFacadeStub) RefundPayment(ctx context.Context, reference string) (*model.Payment, error) {
	if s.RefundFn != nil {
		return s.RefundFn(ctx, reference)
	}
	return &model.Payment{Reference: reference, Status: model.PaymentStatusRefunded}, nil
}

// Profit returns the configured report.
func (s MarketFacadeStub) Profit(ctx context.Context, mode model.ProfitMode, from, to time.Time) (*model.ProfitReport, error) {
	if s.ProfitFn != nil {
		return s.ProfitFn(ctx, mode, from, to)
	}
	return &model.ProfitReport{}, nil
}

// ParseToken resolves the principal for authenticated routes.
func (s MarketFacadeStub) ParseToken(token string) (int64, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	return 1, nil
}

// HealthCheck reports configured liveness.
func (s MarketFacadeStub) HealthCheck(ctx context.Context) error {
	if s.HealthFn != nil {
		return s.HealthFn(ctx)
	}
	return nil
}

// DispatchResult records a FinishDispatch invocation.
type DispatchResult struct {
	OrderID int64
	OK      bool
}

// WorkerFacadeStub mimics dispatcher interactions with the market facade.
type WorkerFacadeStub struct {
	Batches    [][]model.Order
	OrdersFn   func(context.Context, int) ([]model.Order, error)
	DispatchFn func(context.Context, *model.Order) error
	FinishFn   func(context.Context, int64, bool) error
	Dispatched []int64
	Finished   []DispatchResult

	mu        sync.Mutex
	callCount int32
}

// Lock exposes internal mutex for external synchronization.
func (s *WorkerFacadeStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *WorkerFacadeStub) Unlock() { s.mu.Unlock() }

// OrdersForDispatch returns batches from the configured queue.
func (s *WorkerFacadeStub) OrdersForDispatch(ctx context.Context, limit int) ([]model.Order, error) {
	if s.OrdersFn != nil {
		return s.OrdersFn(ctx, limit)
	}
	call := atomic.AddInt32(&s.callCount, 1)
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	time.Sleep(10 * time.Millisecond)
	return nil, nil
}

// DispatchOrder records the dispatched order.
func (s *WorkerFacadeStub) DispatchOrder(ctx context.Context, order *model.Order) error {
	if s.DispatchFn != nil {
		return s.DispatchFn(ctx, order)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Dispatched = append(s.Dispatched, order.ID)
	return nil
}

// FinishDispatch records the outcome routing.
func (s *WorkerFacadeStub) FinishDispatch(ctx context.Context, orderID int64, ok bool) error {
	if s.FinishFn != nil {
		return s.FinishFn(ctx, orderID, ok)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Finished = append(s.Finished, DispatchResult{OrderID: orderID, OK: ok})
	return nil
}
