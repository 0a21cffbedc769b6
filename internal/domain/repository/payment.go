package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/marketpay/internal/domain/model"
)

// SettleParams carries everything the terminal PAID transition persists in
// one transaction.
type SettleParams struct {
	PaymentID   int64
	OrderID     int64
	PaidAt      time.Time
	Fee         decimal.Decimal
	ProviderRef string
	ProviderRaw json.RawMessage
	EventType   model.PaymentEventType
	Activity    string
}

// PaymentRepository describes persistence operations with payment attempts
// and their audit ledger. Attempts are never deleted.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) (*model.Payment, error)
	GetByReference(ctx context.Context, reference string) (*model.Payment, error)
	LatestPending(ctx context.Context, orderID int64, channel model.PaymentChannel) (*model.Payment, error)
	HasPaid(ctx context.Context, orderID int64) (bool, error)

	// SetRedirect stores the gateway redirect URL and raw initialize payload
	// captured for a hosted checkout attempt.
	SetRedirect(ctx context.Context, paymentID int64, redirectURL, providerRef string, raw json.RawMessage) error

	// Cancel moves a PENDING attempt to CANCELED; settled attempts are left
	// untouched.
	Cancel(ctx context.Context, paymentID int64) error

	// MarkFailed transitions PENDING -> FAILED and reports whether the row
	// was still pending. Stale verifies must not overwrite settled states.
	MarkFailed(ctx context.Context, paymentID int64, raw json.RawMessage) (bool, error)

	// Settle performs the atomic PAID transition: conditional status update,
	// sibling cancellation, order advance, event and activity rows. Returns
	// false without mutating anything when the attempt is no longer PENDING.
	Settle(ctx context.Context, params SettleParams) (bool, error)

	// Refund performs the admin-only PAID -> REFUNDED transition.
	Refund(ctx context.Context, paymentID int64, amount decimal.Decimal) (bool, error)

	AppendEvent(ctx context.Context, paymentID int64, eventType model.PaymentEventType, payload json.RawMessage) error

	ListSettledBetween(ctx context.Context, from, to time.Time) ([]model.Payment, error)
	ListByOrderIDs(ctx context.Context, orderIDs []int64) ([]model.Payment, error)
}
