package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus describes the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending             OrderStatus = "PENDING"
	OrderStatusAwaitingFulfillment OrderStatus = "AWAITING_FULFILLMENT"
	OrderStatusShipped             OrderStatus = "SHIPPED"
	OrderStatusDelivered           OrderStatus = "DELIVERED"
	OrderStatusCanceled            OrderStatus = "CANCELED"
)

// Order is a shopper's checkout order. Status is mutated only through the
// reconciliation engine's settle transaction or an admin override.
type Order struct {
	ID         int64
	UserID     int64
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Shipping   decimal.Decimal
	ServiceFee decimal.Decimal
	Total      decimal.Decimal
	Status     OrderStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Items []OrderItem
}

// OrderItem is one purchased line. SupplierCost is the per-unit cost snapshot
// taken at checkout; nil when the supplier never published a cost.
type OrderItem struct {
	ID            int64
	OrderID       int64
	SupplierID    int64
	ProductRef    string
	Quantity      int
	UnitPrice     decimal.Decimal
	SupplierCost  *decimal.Decimal
	CommissionPct int
}

// Subtotal returns quantity times unit price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
