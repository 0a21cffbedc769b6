package model

import "github.com/shopspring/decimal"

// ProfitMode selects how a profit window is scoped.
type ProfitMode string

const (
	// ProfitModeCashflow scopes by payment settlement timestamp.
	ProfitModeCashflow ProfitMode = "cashflow"
	// ProfitModeSales scopes by order creation timestamp and includes every
	// payment ever associated with those orders.
	ProfitModeSales ProfitMode = "sales"
)

// ProfitReport aggregates a revenue window. Tax is informational and excluded
// from GrossProfit.
type ProfitReport struct {
	RevenuePaid  decimal.Decimal
	Refunds      decimal.Decimal
	RevenueNet   decimal.Decimal
	GatewayFees  decimal.Decimal
	TaxCollected decimal.Decimal
	CommsNet     decimal.Decimal
	MarginNet    decimal.Decimal
	GrossProfit  decimal.Decimal
}
