package model

import "time"

// SupplierKind selects the fulfillment mode for a supplier.
type SupplierKind string

const (
	// SupplierStocking ships from stock held by the platform; dispatch is a
	// one-way notification and the supplier is paid a percentage of subtotal.
	SupplierStocking SupplierKind = "stocking"
	// SupplierDropship fulfills through the supplier's own API; the platform
	// keeps a per-item commission.
	SupplierDropship SupplierKind = "dropship"
)

// Supplier is a seller fulfilling order items.
type Supplier struct {
	ID            int64
	Name          string
	Kind          SupplierKind
	PayoutPercent int
	Destination   string
	CreatedAt     time.Time
}
