package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseOrderStatus describes per-supplier sub-order progress.
type PurchaseOrderStatus string

const (
	PurchaseOrderCreated   PurchaseOrderStatus = "CREATED"
	PurchaseOrderNotified  PurchaseOrderStatus = "NOTIFIED"
	PurchaseOrderPlaced    PurchaseOrderStatus = "PLACED"
	PurchaseOrderPaid      PurchaseOrderStatus = "PAID"
	PurchaseOrderCompleted PurchaseOrderStatus = "COMPLETED"
	PurchaseOrderFailed    PurchaseOrderStatus = "FAILED"
)

// PurchaseOrder is the per-supplier sub-order derived from a paid customer
// order. Created exactly once per (order, supplier) pair.
type PurchaseOrder struct {
	ID             int64
	OrderID        int64
	SupplierID     int64
	Subtotal       decimal.Decimal
	PlatformFee    decimal.Decimal
	SupplierAmount decimal.Decimal
	PayoutPercent  int
	Status         PurchaseOrderStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Items []PurchaseOrderItem
}

// ItemStepStatus marks how far the drop-ship call sequence got for one item.
type ItemStepStatus string

const (
	ItemStepPending  ItemStepStatus = "PENDING"
	ItemStepPlaced   ItemStepStatus = "PLACED"
	ItemStepPaid     ItemStepStatus = "PAID"
	ItemStepComplete ItemStepStatus = "COMPLETE"
)

// PurchaseOrderItem tracks per-item external supplier progress so a partially
// dispatched order is observable and resumable.
type PurchaseOrderItem struct {
	ID              int64
	PurchaseOrderID int64
	OrderItemID     int64
	ExternalRef     string
	StepStatus      ItemStepStatus
	ReceiptURL      string
	UpdatedAt       time.Time
}
