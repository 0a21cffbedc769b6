package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/polkiloo/marketpay/internal/adapter/supplier"
	domainErrors "github.com/polkiloo/marketpay/internal/domain/errors"
	"github.com/polkiloo/marketpay/internal/domain/model"
	"github.com/polkiloo/marketpay/internal/domain/repository"
	"github.com/polkiloo/marketpay/internal/pkg/money"
)

// supplierCallRetries bounds retries of one external supplier call within a
// single dispatch run. Runs themselves are retried by the dispatch cycle.
const supplierCallRetries = 3

// FulfillmentUseCase fans a paid order out into per-supplier purchase orders
// and drives each supplier's dispatch protocol.
type FulfillmentUseCase struct {
	purchaseOrders repository.PurchaseOrderRepository
	suppliers      repository.SupplierRepository
	activities     repository.ActivityRepository
	api            supplier.APIClient
	notifier       supplier.Notifier
	logger         *slog.Logger
	backoff        func(attempt int) time.Duration
}

// NewFulfillmentUseCase constructs FulfillmentUseCase.
func NewFulfillmentUseCase(
	purchaseOrders repository.PurchaseOrderRepository,
	suppliers repository.SupplierRepository,
	activities repository.ActivityRepository,
	api supplier.APIClient,
	notifier supplier.Notifier,
	logger *slog.Logger,
) *FulfillmentUseCase {
	return &FulfillmentUseCase{
		purchaseOrders: purchaseOrders,
		suppliers:      suppliers,
		activities:     activities,
		api:            api,
		notifier:       notifier,
		logger:         logger,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt+1) * 500 * time.Millisecond
		},
	}
}

// HandlePaidOrder dispatches every supplier slice of a paid order. Suppliers
// are processed concurrently; one supplier's failure never blocks another's
// progress, but it fails the run so the dispatch cycle retries.
func (u *FulfillmentUseCase) HandlePaidOrder(ctx context.Context, order *model.Order) error {
	if order.Status != model.OrderStatusAwaitingFulfillment {
		return fmt.Errorf("%w: order %d is %s", domainErrors.ErrValidation, order.ID, order.Status)
	}
	if len(order.Items) == 0 {
		return fmt.Errorf("%w: order %d has no items", domainErrors.ErrValidation, order.ID)
	}

	slices := partitionBySupplier(order.Items)
	ids := make([]int64, 0, len(slices))
	for id := range slices {
		ids = append(ids, id)
	}
	suppliers, err := u.suppliers.ListByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[int64]*model.Supplier, len(suppliers))
	for i := range suppliers {
		byID[suppliers[i].ID] = &suppliers[i]
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for supplierID, items := range slices {
		sup, ok := byID[supplierID]
		if !ok {
			return fmt.Errorf("%w: supplier %d", domainErrors.ErrNotFound, supplierID)
		}
		items := items
		group.Go(func() error {
			return u.dispatchSupplier(groupCtx, order, sup, items)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	u.appendActivity(ctx, order.ID, model.ActivityOrderDispatched,
		fmt.Sprintf("dispatched to %d supplier(s)", len(slices)))
	return nil
}

func (u *FulfillmentUseCase) dispatchSupplier(ctx context.Context, order *model.Order, sup *model.Supplier, items []model.OrderItem) error {
	po, err := u.ensurePurchaseOrder(ctx, order, sup, items)
	if err != nil {
		return err
	}
	if po.Status == model.PurchaseOrderCompleted || po.Status == model.PurchaseOrderNotified {
		return nil
	}

	switch sup.Kind {
	case model.SupplierStocking:
		return u.dispatchStocking(ctx, order, sup, po)
	case model.SupplierDropship:
		return u.dispatchDropship(ctx, order, sup, po, items)
	default:
		return fmt.Errorf("%w: supplier kind %q", domainErrors.ErrValidation, sup.Kind)
	}
}

// ensurePurchaseOrder creates the per-supplier sub-order once. A concurrent
// or earlier run's row is reloaded, so dispatch can resume where it stopped.
func (u *FulfillmentUseCase) ensurePurchaseOrder(ctx context.Context, order *model.Order, sup *model.Supplier, items []model.OrderItem) (*model.PurchaseOrder, error) {
	existing, err := u.purchaseOrders.GetByOrderAndSupplier(ctx, order.ID, sup.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domainErrors.ErrNotFound) {
		return nil, err
	}

	po := buildPurchaseOrder(order, sup, items)
	created, err := u.purchaseOrders.Create(ctx, po)
	if errors.Is(err, domainErrors.ErrAlreadyExists) {
		return u.purchaseOrders.GetByOrderAndSupplier(ctx, order.ID, sup.ID)
	}
	return created, err
}

// buildPurchaseOrder snapshots the commission math at dispatch time. Stocking
// suppliers earn a payout percentage of their subtotal; drop-ship suppliers
// receive the subtotal minus per-item commissions.
func buildPurchaseOrder(order *model.Order, sup *model.Supplier, items []model.OrderItem) *model.PurchaseOrder {
	subtotal := decimal.Zero
	platformFee := decimal.Zero
	poItems := make([]model.PurchaseOrderItem, 0, len(items))
	for _, item := range items {
		lineTotal := item.Subtotal()
		subtotal = subtotal.Add(lineTotal)
		if sup.Kind == model.SupplierDropship {
			platformFee = platformFee.Add(money.Percent(lineTotal, item.CommissionPct))
		}
		poItems = append(poItems, model.PurchaseOrderItem{
			OrderItemID: item.ID,
			StepStatus:  model.ItemStepPending,
		})
	}
	if sup.Kind == model.SupplierStocking {
		platformFee = subtotal.Sub(money.Percent(subtotal, sup.PayoutPercent))
	}

	return &model.PurchaseOrder{
		OrderID:        order.ID,
		SupplierID:     sup.ID,
		Subtotal:       subtotal,
		PlatformFee:    platformFee,
		SupplierAmount: subtotal.Sub(platformFee),
		PayoutPercent:  sup.PayoutPercent,
		Status:         model.PurchaseOrderCreated,
		Items:          poItems,
	}
}

// dispatchStocking sends the one-way notification. Delivery failure is logged
// but never fails the run: the goods are already in stock.
func (u *FulfillmentUseCase) dispatchStocking(ctx context.Context, order *model.Order, sup *model.Supplier, po *model.PurchaseOrder) error {
	message := fmt.Sprintf("order %d: %d item(s), payout %s", order.ID, len(po.Items), po.SupplierAmount.StringFixed(2))
	if _, err := u.notifier.Send(ctx, sup.Destination, message); err != nil {
		u.logger.Warn("supplier notification failed",
			slog.Int64("order", order.ID),
			slog.Int64("supplier", sup.ID),
			slog.String("error", err.Error()))
	}
	return u.purchaseOrders.UpdateStatus(ctx, po.ID, model.PurchaseOrderNotified)
}

// dispatchDropship walks each item through place, pay and receipt, persisting
// the step after every successful call so a crashed run resumes mid-sequence.
func (u *FulfillmentUseCase) dispatchDropship(ctx context.Context, order *model.Order, sup *model.Supplier, po *model.PurchaseOrder, items []model.OrderItem) error {
	itemsByID := make(map[int64]model.OrderItem, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
	}

	if po.Status == model.PurchaseOrderCreated {
		if err := u.purchaseOrders.UpdateStatus(ctx, po.ID, model.PurchaseOrderPlaced); err != nil {
			return err
		}
	}

	for i := range po.Items {
		poItem := &po.Items[i]
		orderItem, ok := itemsByID[poItem.OrderItemID]
		if !ok {
			return fmt.Errorf("%w: order item %d", domainErrors.ErrNotFound, poItem.OrderItemID)
		}
		if err := u.advanceItem(ctx, order, sup, poItem, orderItem); err != nil {
			return err
		}
	}

	return u.purchaseOrders.UpdateStatus(ctx, po.ID, model.PurchaseOrderCompleted)
}

func (u *FulfillmentUseCase) advanceItem(ctx context.Context, order *model.Order, sup *model.Supplier, poItem *model.PurchaseOrderItem, orderItem model.OrderItem) error {
	if poItem.StepStatus == model.ItemStepPending {
		unitCost := orderItem.UnitPrice
		if orderItem.SupplierCost != nil {
			unitCost = *orderItem.SupplierCost
		}
		ref, err := u.withRetry(ctx, func() (string, error) {
			return u.api.Place(ctx, supplier.PlaceRequest{
				SupplierID: sup.ID,
				ProductRef: orderItem.ProductRef,
				Quantity:   orderItem.Quantity,
				UnitCost:   unitCost,
				OrderRef:   fmt.Sprintf("ORD-%d", order.ID),
			})
		})
		if err != nil {
			return fmt.Errorf("place item %d: %w", orderItem.ID, err)
		}
		if err := u.purchaseOrders.UpdateItemStep(ctx, poItem.ID, model.ItemStepPlaced, ref, ""); err != nil {
			return err
		}
		poItem.ExternalRef = ref
		poItem.StepStatus = model.ItemStepPlaced
	}

	if poItem.StepStatus == model.ItemStepPlaced {
		_, err := u.withRetry(ctx, func() (string, error) {
			return "", u.api.Pay(ctx, poItem.ExternalRef)
		})
		if err != nil {
			return fmt.Errorf("pay item %d: %w", orderItem.ID, err)
		}
		if err := u.purchaseOrders.UpdateItemStep(ctx, poItem.ID, model.ItemStepPaid, poItem.ExternalRef, ""); err != nil {
			return err
		}
		poItem.StepStatus = model.ItemStepPaid
	}

	if poItem.StepStatus == model.ItemStepPaid {
		receiptURL, err := u.withRetry(ctx, func() (string, error) {
			return u.api.FetchReceipt(ctx, poItem.ExternalRef)
		})
		if err != nil {
			return fmt.Errorf("fetch receipt for item %d: %w", orderItem.ID, err)
		}
		if err := u.purchaseOrders.UpdateItemStep(ctx, poItem.ID, model.ItemStepComplete, poItem.ExternalRef, receiptURL); err != nil {
			return err
		}
		poItem.StepStatus = model.ItemStepComplete
		poItem.ReceiptURL = receiptURL
	}

	return nil
}

func (u *FulfillmentUseCase) withRetry(ctx context.Context, call func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt < supplierCallRetries; attempt++ {
		result, err := call()
		if err == nil {
			return result, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(u.backoff(attempt)):
		}
	}
	return "", lastErr
}

func (u *FulfillmentUseCase) appendActivity(ctx context.Context, orderID int64, activityType, message string) {
	err := u.activities.Append(ctx, &model.OrderActivity{OrderID: orderID, Type: activityType, Message: message})
	if err != nil {
		u.logger.Error("append order activity failed", slog.Int64("order", orderID), slog.String("error", err.Error()))
	}
}

func partitionBySupplier(items []model.OrderItem) map[int64][]model.OrderItem {
	slices := make(map[int64][]model.OrderItem)
	for _, item := range items {
		slices[item.SupplierID] = append(slices[item.SupplierID], item)
	}
	return slices
}
