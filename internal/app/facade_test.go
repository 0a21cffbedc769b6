package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/marketpay/internal/adapter/gateway"
	"github.com/polkiloo/marketpay/internal/config"
	domainErrors "github.com/polkiloo/marketpay/internal/domain/errors"
	"github.com/polkiloo/marketpay/internal/domain/model"
	testhelpers "github.com/polkiloo/marketpay/internal/test"
	"github.com/polkiloo/marketpay/internal/usecase"
)

type healthStub struct{ err error }

func (h healthStub) HealthCheck(ctx context.Context) error { return h.err }

type facadeEnv struct {
	facade    *MarketFacade
	orders    *testhelpers.OrderRepositoryStub
	payments  *testhelpers.PaymentRepositoryStub
	pos       *testhelpers.PurchaseOrderRepositoryStub
	suppliers *testhelpers.SupplierRepositoryStub
	gateway   *testhelpers.GatewayClientStub
	notifier  *testhelpers.NotifierStub
	health    *healthStub
}

func newFacadeEnv() *facadeEnv {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cfg := &config.Config{
		GatewaySecret:      "whsec",
		Currency:           "NGN",
		ApprovalMode:       config.ApprovalAuto,
		AttemptTTL:         time.Hour,
		DispatchMaxRetries: 3,
	}

	env := &facadeEnv{
		orders:   testhelpers.NewOrderRepositoryStub(),
		payments: testhelpers.NewPaymentRepositoryStub(),
		pos:      testhelpers.NewPurchaseOrderRepositoryStub(),
		suppliers: testhelpers.NewSupplierRepositoryStub(
			model.Supplier{ID: 10, Name: "stock-co", Kind: model.SupplierStocking, PayoutPercent: 80, Destination: "ops@stock-co.example"},
			model.Supplier{ID: 20, Name: "drop-co", Kind: model.SupplierDropship},
		),
		gateway:  &testhelpers.GatewayClientStub{},
		notifier: &testhelpers.NotifierStub{},
		health:   &healthStub{},
	}

	activities := &testhelpers.ActivityRepositoryStub{}
	issuer := &testhelpers.ReceiptIssuerStub{}
	api := &testhelpers.SupplierAPIStub{}
	strategy := testhelpers.StrategyStub{ParseFn: func(string) (int64, error) { return 99, nil }}

	ordersUC := usecase.NewOrderUseCase(env.orders, env.suppliers, logger)
	paymentsUC := usecase.NewPaymentUseCase(env.orders, env.payments, activities, env.gateway, cfg, logger)
	reconcileUC := usecase.NewReconcileUseCase(env.payments, env.gateway, issuer, nil, cfg, logger)
	fulfillmentUC := usecase.NewFulfillmentUseCase(env.pos, env.suppliers, activities, api, env.notifier, logger)
	profitUC := usecase.NewProfitUseCase(env.orders, env.payments, env.pos, logger)

	env.facade = NewMarketFacade(ordersUC, paymentsUC, reconcileUC, fulfillmentUC, profitUC, strategy, env.health)
	return env
}

func checkoutOrder(t *testing.T, env *facadeEnv, userID int64) *model.Order {
	t.Helper()
	order, err := env.facade.Checkout(context.Background(), userID, usecase.CheckoutInput{
		Items: []usecase.CheckoutItem{
			{SupplierID: 10, ProductRef: "sku-1", Quantity: 2, UnitPrice: decimal.NewFromInt(50)},
		},
		Tax: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	return order
}

func TestMarketFacadeCheckoutAndOrders(t *testing.T) {
	env := newFacadeEnv()
	order := checkoutOrder(t, env, 7)

	if !order.Total.Equal(decimal.NewFromInt(110)) {
		t.Fatalf("unexpected total %s", order.Total)
	}

	listed, err := env.facade.Orders(context.Background(), 7)
	if err != nil || len(listed) != 1 {
		t.Fatalf("expected one order, got %v err=%v", listed, err)
	}

	got, err := env.facade.Order(context.Background(), 7, order.ID)
	if err != nil || got.ID != order.ID {
		t.Fatalf("unexpected owned order %v err=%v", got, err)
	}

	if _, err := env.facade.Order(context.Background(), 8, order.ID); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected foreign order hidden, got %v", err)
	}
}

func TestMarketFacadePaymentRoundTrip(t *testing.T) {
	env := newFacadeEnv()
	order := checkoutOrder(t, env, 7)

	result, err := env.facade.InitPayment(context.Background(), 7, order.ID, model.ChannelGateway)
	if err != nil {
		t.Fatalf("init payment failed: %v", err)
	}
	if result.RedirectURL == "" {
		t.Fatal("expected hosted checkout redirect")
	}

	reference := result.Payment.Reference
	paidAt := time.Now()
	env.gateway.VerifyFn = func(ctx context.Context, ref string) (*gateway.VerifyResult, error) {
		return &gateway.VerifyResult{
			Status:    gateway.VerifySuccess,
			Reference: ref,
			Amount:    result.Payment.Amount,
			Fee:       decimal.RequireFromString("1.50"),
			PaidAt:    &paidAt,
		}, nil
	}

	payment, err := env.facade.VerifyPayment(context.Background(), 7, reference)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if payment.Status != model.PaymentStatusPaid {
		t.Fatalf("expected PAID, got %s", payment.Status)
	}

	if _, err := env.facade.InitPayment(context.Background(), 7, order.ID, model.ChannelGateway); !errors.Is(err, domainErrors.ErrAlreadyPaid) {
		t.Fatalf("expected already paid, got %v", err)
	}
}

func TestMarketFacadeDispatchCycle(t *testing.T) {
	env := newFacadeEnv()
	order := checkoutOrder(t, env, 7)
	order.Status = model.OrderStatusAwaitingFulfillment

	batch, err := env.facade.OrdersForDispatch(context.Background(), 5)
	if err != nil || len(batch) != 1 {
		t.Fatalf("expected one claimable order, got %v err=%v", batch, err)
	}

	if err := env.facade.DispatchOrder(context.Background(), order); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	po, err := env.pos.GetByOrderAndSupplier(context.Background(), order.ID, 10)
	if err != nil {
		t.Fatalf("expected purchase order for supplier 10: %v", err)
	}
	if po.Status != model.PurchaseOrderNotified {
		t.Fatalf("expected NOTIFIED purchase order, got %s", po.Status)
	}
	if len(env.notifier.Sent) != 1 {
		t.Fatalf("expected one supplier notification, got %d", len(env.notifier.Sent))
	}

	if err := env.facade.FinishDispatch(context.Background(), order.ID, true); err != nil {
		t.Fatalf("finish dispatch failed: %v", err)
	}
}

func TestMarketFacadeProfitValidatesWindow(t *testing.T) {
	env := newFacadeEnv()
	now := time.Now()
	if _, err := env.facade.Profit(context.Background(), model.ProfitModeCashflow, now, now); !errors.Is(err, domainErrors.ErrValidation) {
		t.Fatalf("expected validation error for empty window, got %v", err)
	}
}

func TestMarketFacadeTokenAndHealth(t *testing.T) {
	env := newFacadeEnv()

	id, err := env.facade.ParseToken("anything")
	if err != nil || id != 99 {
		t.Fatalf("unexpected principal %d err=%v", id, err)
	}

	if err := env.facade.HealthCheck(context.Background()); err != nil {
		t.Fatalf("expected healthy, got %v", err)
	}
	env.health.err = errors.New("storage down")
	if err := env.facade.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check failure")
	}
}
