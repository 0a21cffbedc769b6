package dto

import "github.com/shopspring/decimal"

// ProfitResponse is the windowed profit report returned to operators.
type ProfitResponse struct {
	Mode         string          `json:"mode"`
	From         string          `json:"from"`
	To           string          `json:"to"`
	RevenuePaid  decimal.Decimal `json:"revenue_paid"`
	Refunds      decimal.Decimal `json:"refunds"`
	RevenueNet   decimal.Decimal `json:"revenue_net"`
	GatewayFees  decimal.Decimal `json:"gateway_fees"`
	TaxCollected decimal.Decimal `json:"tax_collected"`
	CommsNet     decimal.Decimal `json:"commissions_net"`
	MarginNet    decimal.Decimal `json:"margin_net"`
	GrossProfit  decimal.Decimal `json:"gross_profit"`
}
