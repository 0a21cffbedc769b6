package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutItemRequest is one cart line in a checkout request.
type CheckoutItemRequest struct {
	SupplierID    int64            `json:"supplier_id" binding:"required"`
	ProductRef    string           `json:"product_ref" binding:"required"`
	Quantity      int              `json:"quantity" binding:"required"`
	UnitPrice     decimal.Decimal  `json:"unit_price" binding:"required"`
	SupplierCost  *decimal.Decimal `json:"supplier_cost,omitempty"`
	CommissionPct int              `json:"commission_pct"`
}

// CheckoutRequest creates a new order.
type CheckoutRequest struct {
	Items      []CheckoutItemRequest `json:"items" binding:"required"`
	Tax        decimal.Decimal       `json:"tax"`
	Shipping   decimal.Decimal       `json:"shipping"`
	ServiceFee decimal.Decimal       `json:"service_fee"`
}

// OrderItemResponse is one order line in responses.
type OrderItemResponse struct {
	SupplierID int64           `json:"supplier_id"`
	ProductRef string          `json:"product_ref"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// OrderResponse is the order representation returned to shoppers.
type OrderResponse struct {
	ID        int64               `json:"id"`
	Status    string              `json:"status"`
	Subtotal  decimal.Decimal     `json:"subtotal"`
	Tax       decimal.Decimal     `json:"tax"`
	Shipping  decimal.Decimal     `json:"shipping"`
	Total     decimal.Decimal     `json:"total"`
	CreatedAt time.Time           `json:"created_at"`
	Items     []OrderItemResponse `json:"items,omitempty"`
}
