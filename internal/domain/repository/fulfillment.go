package repository

import (
	"context"

	"github.com/polkiloo/marketpay/internal/domain/model"
)

// PurchaseOrderRepository manages per-supplier sub-orders.
type PurchaseOrderRepository interface {
	// Create inserts the purchase order with its items; a second insert for
	// the same (order, supplier) pair reports ErrAlreadyExists.
	Create(ctx context.Context, po *model.PurchaseOrder) (*model.PurchaseOrder, error)
	GetByOrderAndSupplier(ctx context.Context, orderID, supplierID int64) (*model.PurchaseOrder, error)
	ListByOrderIDs(ctx context.Context, orderIDs []int64) ([]model.PurchaseOrder, error)
	UpdateStatus(ctx context.Context, poID int64, status model.PurchaseOrderStatus) error
	UpdateItemStep(ctx context.Context, itemID int64, step model.ItemStepStatus, externalRef, receiptURL string) error
}

// SupplierRepository provides supplier configuration.
type SupplierRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Supplier, error)
	ListByIDs(ctx context.Context, ids []int64) ([]model.Supplier, error)
}

// ActivityRepository appends to the order activity trail.
type ActivityRepository interface {
	Append(ctx context.Context, activity *model.OrderActivity) error
	ListByOrder(ctx context.Context, orderID int64) ([]model.OrderActivity, error)
}
