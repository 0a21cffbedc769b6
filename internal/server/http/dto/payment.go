package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// InitPaymentRequest starts or resumes a payment attempt for an order.
type InitPaymentRequest struct {
	OrderID int64  `json:"order_id" binding:"required"`
	Channel string `json:"channel" binding:"required"`
}

// BankDetailsResponse carries synthetic transfer instructions for manual
// channels.
type BankDetailsResponse struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	Reference     string `json:"reference"`
}

// PaymentResponse is the attempt representation returned by init and verify.
type PaymentResponse struct {
	Reference   string               `json:"reference"`
	OrderID     int64                `json:"order_id"`
	Channel     string               `json:"channel"`
	Status      string               `json:"status"`
	Amount      decimal.Decimal      `json:"amount"`
	Resumed     bool                 `json:"resumed,omitempty"`
	RedirectURL string               `json:"redirect_url,omitempty"`
	BankDetails *BankDetailsResponse `json:"bank_details,omitempty"`
	PaidAt      *time.Time           `json:"paid_at,omitempty"`
}
