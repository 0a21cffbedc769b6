package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentChannel is the path a payment attempt travels.
type PaymentChannel string

const (
	ChannelGateway      PaymentChannel = "gateway"
	ChannelBankTransfer PaymentChannel = "bank_transfer"
	ChannelTrial        PaymentChannel = "trial"
)

// PaymentStatus describes the payment attempt state machine. Every status
// except PENDING is terminal; REFUNDED is reachable only from PAID.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusCanceled PaymentStatus = "CANCELED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Terminal reports whether no further transition is defined out of s,
// other than the admin-initiated PAID -> REFUNDED.
func (s PaymentStatus) Terminal() bool {
	return s != PaymentStatusPending
}

// Payment is one attempt at paying for an order via a specific channel.
// At most one payment per order may ever reach PAID. Rows are never deleted.
type Payment struct {
	ID          int64
	OrderID     int64
	UserID      int64
	Reference   string
	Channel     PaymentChannel
	Provider    string
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	Refunded    decimal.Decimal
	Status      PaymentStatus
	RedirectURL string
	ProviderRef string
	ProviderRaw json.RawMessage
	PaidAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PaymentEventType tags rows in the append-only reconciliation ledger.
type PaymentEventType string

const (
	EventVerifyPending         PaymentEventType = "VERIFY_PENDING"
	EventVerifyPaid            PaymentEventType = "VERIFY_PAID"
	EventVerifyFailed          PaymentEventType = "VERIFY_FAILED"
	EventVerifyMismatch        PaymentEventType = "VERIFY_MISMATCH"
	EventVerifyError           PaymentEventType = "VERIFY_ERROR"
	EventWebhookMarkPaid       PaymentEventType = "WEBHOOK_MARK_PAID"
	EventWebhookMarkFailed     PaymentEventType = "WEBHOOK_MARK_FAILED"
	EventWebhookIgnoredChannel PaymentEventType = "WEBHOOK_IGNORED_CHANNEL"
	EventManualApproved        PaymentEventType = "MANUAL_APPROVED"
	EventRefunded              PaymentEventType = "REFUNDED"
)

// PaymentEvent is one row of the append-only audit ledger; one row per
// reconciliation attempt regardless of outcome.
type PaymentEvent struct {
	ID        int64
	PaymentID int64
	Type      PaymentEventType
	Payload   json.RawMessage
	CreatedAt time.Time
}
