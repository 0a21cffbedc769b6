package di

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"go.uber.org/fx"

	"github.com/polkiloo/marketpay/internal/adapter/gateway"
	"github.com/polkiloo/marketpay/internal/adapter/receipt"
	"github.com/polkiloo/marketpay/internal/adapter/supplier"
	"github.com/polkiloo/marketpay/internal/app"
	"github.com/polkiloo/marketpay/internal/config"
	"github.com/polkiloo/marketpay/internal/domain/repository"
	"github.com/polkiloo/marketpay/internal/storage/postgres"
	"github.com/polkiloo/marketpay/internal/test"
)

func TestModuleComposesGraphWithReplacements(t *testing.T) {
	cfg := &config.Config{
		RunAddress:        ":0",
		DatabaseURI:       "postgres://stub",
		GatewayAddress:    "http://localhost",
		GatewaySecret:     "whsec",
		AuthSecret:        "secret",
		Currency:          "NGN",
		ApprovalMode:      config.ApprovalAuto,
		AttemptTTL:        time.Minute,
		DispatchInterval:  time.Millisecond,
		DispatchBatchSize: 1,
		WorkerPoolSize:    1,
		ShutdownTimeout:   time.Millisecond,
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	var facade *app.MarketFacade
	fxApp := fx.New(
		fx.NopLogger,
		fx.Supply(context.Background()),
		Module(
			fx.Replace(cfg),
			fx.Replace(logger),
			fx.Replace(&postgres.Storage{}),
			fx.Replace(repository.OrderRepository(test.NewOrderRepositoryStub())),
			fx.Replace(repository.PaymentRepository(test.NewPaymentRepositoryStub())),
			fx.Replace(repository.PurchaseOrderRepository(test.NewPurchaseOrderRepositoryStub())),
			fx.Replace(repository.SupplierRepository(test.NewSupplierRepositoryStub())),
			fx.Replace(repository.ActivityRepository(&test.ActivityRepositoryStub{})),
			fx.Replace(gateway.Client(&test.GatewayClientStub{})),
			fx.Replace(receipt.Issuer(&test.ReceiptIssuerStub{})),
			fx.Replace(supplier.APIClient(&test.SupplierAPIStub{})),
			fx.Replace(supplier.Notifier(&test.NotifierStub{})),
		),
		fx.Populate(&facade),
	)

	if err := fxApp.Err(); err != nil {
		t.Fatalf("fx app returned error: %v", err)
	}
	t.Cleanup(func() { _ = fxApp.Stop(context.Background()) })
	if facade == nil {
		t.Fatal("expected market facade instance")
	}
}
