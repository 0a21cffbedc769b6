package model

import (
	"encoding/json"
	"time"
)

// OrderActivity is an append-only human-readable trail written alongside
// every state transition worth showing to an observer.
type OrderActivity struct {
	ID        int64
	OrderID   int64
	Type      string
	Message   string
	Meta      json.RawMessage
	CreatedAt time.Time
}

const (
	ActivityPaymentReceived = "payment_received"
	ActivityPaymentRefunded = "payment_refunded"
	ActivityOrderDispatched = "order_dispatched"
	ActivityAttemptRotated  = "attempt_rotated"
	ActivityAnomalousMargin = "anomalous_margin"
)
