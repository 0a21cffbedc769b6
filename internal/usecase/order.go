package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/marketpay/internal/domain/errors"
	"github.com/polkiloo/marketpay/internal/domain/model"
	"github.com/polkiloo/marketpay/internal/domain/repository"
	"github.com/polkiloo/marketpay/internal/pkg/money"
)

// CheckoutItem is one line of a checkout request.
type CheckoutItem struct {
	SupplierID    int64
	ProductRef    string
	Quantity      int
	UnitPrice     decimal.Decimal
	SupplierCost  *decimal.Decimal
	CommissionPct int
}

// CheckoutInput describes a new order. Subtotal is derived from the items;
// tax, shipping and the service fee come from the storefront.
type CheckoutInput struct {
	Items      []CheckoutItem
	Tax        decimal.Decimal
	Shipping   decimal.Decimal
	ServiceFee decimal.Decimal
}

// OrderUseCase creates orders and drives the dispatch claim cycle used by the
// fulfillment worker.
type OrderUseCase struct {
	orders    repository.OrderRepository
	suppliers repository.SupplierRepository
	logger    *slog.Logger
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(orders repository.OrderRepository, suppliers repository.SupplierRepository, logger *slog.Logger) *OrderUseCase {
	return &OrderUseCase{orders: orders, suppliers: suppliers, logger: logger}
}

// Checkout validates the cart and persists an order in PENDING.
func (u *OrderUseCase) Checkout(ctx context.Context, userID int64, input CheckoutInput) (*model.Order, error) {
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one item", domainErrors.ErrValidation)
	}
	if input.Tax.IsNegative() || input.Shipping.IsNegative() || input.ServiceFee.IsNegative() {
		return nil, fmt.Errorf("%w: charges must not be negative", domainErrors.ErrValidation)
	}

	supplierIDs := make([]int64, 0, len(input.Items))
	seen := make(map[int64]struct{}, len(input.Items))
	items := make([]model.OrderItem, 0, len(input.Items))
	subtotal := decimal.Zero
	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", domainErrors.ErrValidation)
		}
		if !line.UnitPrice.IsPositive() {
			return nil, fmt.Errorf("%w: unit price must be positive", domainErrors.ErrValidation)
		}
		if line.ProductRef == "" {
			return nil, fmt.Errorf("%w: product reference is required", domainErrors.ErrValidation)
		}
		if line.CommissionPct < 0 || line.CommissionPct > 100 {
			return nil, fmt.Errorf("%w: commission percent out of range", domainErrors.ErrValidation)
		}
		if _, ok := seen[line.SupplierID]; !ok {
			seen[line.SupplierID] = struct{}{}
			supplierIDs = append(supplierIDs, line.SupplierID)
		}
		item := model.OrderItem{
			SupplierID:    line.SupplierID,
			ProductRef:    line.ProductRef,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
			SupplierCost:  line.SupplierCost,
			CommissionPct: line.CommissionPct,
		}
		subtotal = subtotal.Add(item.Subtotal())
		items = append(items, item)
	}

	known, err := u.suppliers.ListByIDs(ctx, supplierIDs)
	if err != nil {
		return nil, err
	}
	if len(known) != len(supplierIDs) {
		return nil, fmt.Errorf("%w: unknown supplier in cart", domainErrors.ErrValidation)
	}

	order := &model.Order{
		UserID:     userID,
		Subtotal:   subtotal,
		Tax:        input.Tax,
		Shipping:   input.Shipping,
		ServiceFee: input.ServiceFee,
		Total:      money.Sum(subtotal, input.Tax, input.Shipping, input.ServiceFee),
		Status:     model.OrderStatusPending,
		Items:      items,
	}
	return u.orders.Create(ctx, order)
}

// GetOwned fetches an order and enforces ownership.
func (u *OrderUseCase) GetOwned(ctx context.Context, userID, orderID int64) (*model.Order, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domainErrors.ErrNotFound
	}
	return order, nil
}

// ListByUser returns the shopper's orders, newest first.
func (u *OrderUseCase) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return u.orders.ListByUser(ctx, userID)
}

// OrdersForDispatch claims a batch of paid orders for the fulfillment worker.
func (u *OrderUseCase) OrdersForDispatch(ctx context.Context, limit int) ([]model.Order, error) {
	return u.orders.SelectBatchForDispatch(ctx, limit)
}

// FinishDispatch records the outcome of a dispatch run for one order.
func (u *OrderUseCase) FinishDispatch(ctx context.Context, orderID int64, ok bool) error {
	if ok {
		return u.orders.MarkDispatched(ctx, orderID)
	}
	u.logger.Warn("dispatch failed, releasing order for retry", slog.Int64("order", orderID))
	return u.orders.ReleaseDispatch(ctx, orderID)
}
