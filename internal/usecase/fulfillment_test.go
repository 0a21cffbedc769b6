package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/polkiloo/marketpay/internal/adapter/supplier"
	domainErrors "github.com/polkiloo/marketpay/internal/domain/errors"
	"github.com/polkiloo/marketpay/internal/domain/model"
)

func paidOrder() *model.Order {
	cost := mustDecimal("40.00")
	return &model.Order{
		ID:     5,
		UserID: 7,
		Status: model.OrderStatusAwaitingFulfillment,
		Items: []model.OrderItem{
			{ID: 1, OrderID: 5, SupplierID: 10, ProductRef: "sku-1", Quantity: 2, UnitPrice: mustDecimal("50.00"), SupplierCost: &cost, CommissionPct: 10},
			{ID: 2, OrderID: 5, SupplierID: 20, ProductRef: "sku-2", Quantity: 1, UnitPrice: mustDecimal("30.00")},
		},
	}
}

func newFulfillment(pos stubPurchaseOrderRepository, sups stubSupplierRepository, api stubSupplierAPI, notifier stubNotifier) *FulfillmentUseCase {
	uc := NewFulfillmentUseCase(pos, sups, stubActivityRepository{}, api, notifier, testLogger())
	uc.backoff = func(int) time.Duration { return 0 }
	return uc
}

func TestHandlePaidOrderRequiresAwaitingFulfillment(t *testing.T) {
	uc := newFulfillment(stubPurchaseOrderRepository{}, stubSupplierRepository{}, stubSupplierAPI{}, stubNotifier{})
	order := paidOrder()
	order.Status = model.OrderStatusPending

	if err := uc.HandlePaidOrder(context.Background(), order); !errors.Is(err, domainErrors.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestHandlePaidOrderFansOutPerSupplier(t *testing.T) {
	var mu sync.Mutex
	createdPOs := map[int64]*model.PurchaseOrder{}
	notified := map[string]bool{}
	apiCalls := []string{}

	pos := stubPurchaseOrderRepository{
		getFn: func(_ context.Context, orderID, supplierID int64) (*model.PurchaseOrder, error) {
			mu.Lock()
			defer mu.Unlock()
			if po, ok := createdPOs[supplierID]; ok {
				return po, nil
			}
			return nil, domainErrors.ErrNotFound
		},
		createFn: func(_ context.Context, po *model.PurchaseOrder) (*model.PurchaseOrder, error) {
			mu.Lock()
			defer mu.Unlock()
			po.ID = po.SupplierID * 100
			for i := range po.Items {
				po.Items[i].ID = po.ID + int64(i)
			}
			createdPOs[po.SupplierID] = po
			return po, nil
		},
		updateStatus: func(context.Context, int64, model.PurchaseOrderStatus) error { return nil },
		updateItemFn: func(context.Context, int64, model.ItemStepStatus, string, string) error { return nil },
	}
	sups := stubSupplierRepository{listByIDsFn: func(context.Context, []int64) ([]model.Supplier, error) {
		return []model.Supplier{
			{ID: 10, Kind: model.SupplierDropship, Destination: "dropship-a"},
			{ID: 20, Kind: model.SupplierStocking, PayoutPercent: 80, Destination: "stock-b"},
		}, nil
	}}
	api := stubSupplierAPI{
		placeFn: func(_ context.Context, req supplier.PlaceRequest) (string, error) {
			mu.Lock()
			apiCalls = append(apiCalls, "place:"+req.ProductRef)
			mu.Unlock()
			return "ext-" + req.ProductRef, nil
		},
		payFn: func(_ context.Context, ref string) error {
			mu.Lock()
			apiCalls = append(apiCalls, "pay:"+ref)
			mu.Unlock()
			return nil
		},
		receiptFn: func(_ context.Context, ref string) (string, error) {
			mu.Lock()
			apiCalls = append(apiCalls, "receipt:"+ref)
			mu.Unlock()
			return "https://sup.local/r/" + ref, nil
		},
	}
	notifier := stubNotifier{sendFn: func(_ context.Context, destination, _ string) (string, error) {
		mu.Lock()
		notified[destination] = true
		mu.Unlock()
		return "msg-1", nil
	}}

	uc := newFulfillment(pos, sups, api, notifier)
	if err := uc.HandlePaidOrder(context.Background(), paidOrder()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(createdPOs) != 2 {
		t.Fatalf("expected a purchase order per supplier, got %d", len(createdPOs))
	}
	if !notified["stock-b"] {
		t.Fatal("expected stocking supplier notification")
	}

	dropship := createdPOs[10]
	// 2 * 50.00 subtotal with 10% commission.
	if !dropship.Subtotal.Equal(mustDecimal("100.00")) {
		t.Fatalf("unexpected dropship subtotal %s", dropship.Subtotal)
	}
	if !dropship.PlatformFee.Equal(mustDecimal("10.00")) {
		t.Fatalf("unexpected dropship platform fee %s", dropship.PlatformFee)
	}
	if !dropship.SupplierAmount.Equal(mustDecimal("90.00")) {
		t.Fatalf("unexpected dropship supplier amount %s", dropship.SupplierAmount)
	}

	stocking := createdPOs[20]
	if !stocking.PlatformFee.Equal(mustDecimal("6.00")) {
		t.Fatalf("unexpected stocking platform fee %s", stocking.PlatformFee)
	}
	if !stocking.SupplierAmount.Equal(mustDecimal("24.00")) {
		t.Fatalf("unexpected stocking payout %s", stocking.SupplierAmount)
	}

	want := []string{"place:sku-1", "pay:ext-sku-1", "receipt:ext-sku-1"}
	if len(apiCalls) != len(want) {
		t.Fatalf("unexpected api calls %v", apiCalls)
	}
	for i := range want {
		if apiCalls[i] != want[i] {
			t.Fatalf("call %d: expected %q, got %q", i, want[i], apiCalls[i])
		}
	}
}

func TestDispatchDropshipResumesFromRecordedStep(t *testing.T) {
	po := &model.PurchaseOrder{
		ID:         1000,
		OrderID:    5,
		SupplierID: 10,
		Status:     model.PurchaseOrderPlaced,
		Items: []model.PurchaseOrderItem{
			{ID: 1001, OrderItemID: 1, ExternalRef: "ext-sku-1", StepStatus: model.ItemStepPaid},
		},
	}
	pos := stubPurchaseOrderRepository{
		getFn: func(context.Context, int64, int64) (*model.PurchaseOrder, error) {
			return po, nil
		},
		updateStatus: func(context.Context, int64, model.PurchaseOrderStatus) error { return nil },
		updateItemFn: func(_ context.Context, itemID int64, step model.ItemStepStatus, _, receiptURL string) error {
			if itemID != 1001 || step != model.ItemStepComplete || receiptURL == "" {
				return fmt.Errorf("unexpected step update: item=%d step=%s url=%q", itemID, step, receiptURL)
			}
			return nil
		},
	}
	sups := stubSupplierRepository{listByIDsFn: func(context.Context, []int64) ([]model.Supplier, error) {
		return []model.Supplier{{ID: 10, Kind: model.SupplierDropship}}, nil
	}}
	api := stubSupplierAPI{
		placeFn: func(context.Context, supplier.PlaceRequest) (string, error) {
			t.Fatal("already placed item must not be placed again")
			return "", nil
		},
		payFn: func(context.Context, string) error {
			t.Fatal("already paid item must not be paid again")
			return nil
		},
		receiptFn: func(_ context.Context, ref string) (string, error) {
			return "https://sup.local/r/" + ref, nil
		},
	}

	order := paidOrder()
	order.Items = order.Items[:1]
	uc := newFulfillment(pos, sups, api, stubNotifier{})
	if err := uc.HandlePaidOrder(context.Background(), order); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDispatchRetriesTransientSupplierFailure(t *testing.T) {
	attempts := 0
	pos := stubPurchaseOrderRepository{
		getFn: func(context.Context, int64, int64) (*model.PurchaseOrder, error) {
			return nil, domainErrors.ErrNotFound
		},
		createFn: func(_ context.Context, po *model.PurchaseOrder) (*model.PurchaseOrder, error) {
			po.ID = 1000
			for i := range po.Items {
				po.Items[i].ID = po.ID + int64(i)
			}
			return po, nil
		},
		updateStatus: func(context.Context, int64, model.PurchaseOrderStatus) error { return nil },
		updateItemFn: func(context.Context, int64, model.ItemStepStatus, string, string) error { return nil },
	}
	sups := stubSupplierRepository{listByIDsFn: func(context.Context, []int64) ([]model.Supplier, error) {
		return []model.Supplier{{ID: 10, Kind: model.SupplierDropship}}, nil
	}}
	api := stubSupplierAPI{
		placeFn: func(context.Context, supplier.PlaceRequest) (string, error) {
			attempts++
			if attempts < 3 {
				return "", fmt.Errorf("supplier error: 503")
			}
			return "ext-1", nil
		},
		payFn:     func(context.Context, string) error { return nil },
		receiptFn: func(context.Context, string) (string, error) { return "https://sup.local/r/ext-1", nil },
	}

	order := paidOrder()
	order.Items = order.Items[:1]
	uc := newFulfillment(pos, sups, api, stubNotifier{})
	if err := uc.HandlePaidOrder(context.Background(), order); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 place attempts, got %d", attempts)
	}
}

func TestDispatchFailureBubblesForRetry(t *testing.T) {
	pos := stubPurchaseOrderRepository{
		getFn: func(context.Context, int64, int64) (*model.PurchaseOrder, error) {
			return nil, domainErrors.ErrNotFound
		},
		createFn: func(_ context.Context, po *model.PurchaseOrder) (*model.PurchaseOrder, error) {
			po.ID = 1000
			for i := range po.Items {
				po.Items[i].ID = po.ID + int64(i)
			}
			return po, nil
		},
		updateStatus: func(context.Context, int64, model.PurchaseOrderStatus) error { return nil },
		updateItemFn: func(context.Context, int64, model.ItemStepStatus, string, string) error { return nil },
	}
	sups := stubSupplierRepository{listByIDsFn: func(context.Context, []int64) ([]model.Supplier, error) {
		return []model.Supplier{{ID: 10, Kind: model.SupplierDropship}}, nil
	}}
	api := stubSupplierAPI{placeFn: func(context.Context, supplier.PlaceRequest) (string, error) {
		return "", fmt.Errorf("supplier error: 500")
	}}

	order := paidOrder()
	order.Items = order.Items[:1]
	uc := newFulfillment(pos, sups, api, stubNotifier{})
	if err := uc.HandlePaidOrder(context.Background(), order); err == nil {
		t.Fatal("expected dispatch failure to bubble")
	}
}
