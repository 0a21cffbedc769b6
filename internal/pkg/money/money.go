// Package money holds the exact decimal arithmetic used for every monetary
// value in the system. Binary floating point is never used for money.
package money

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// ToMinorUnits converts a major-unit amount to the gateway's integer
// minor-unit representation (e.g. 125.50 -> 12550).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts an integer minor-unit amount back to major units.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// Sum adds amounts exactly. Order of summation never changes the result.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Percent returns amount * pct / 100 rounded to two decimal places.
func Percent(amount decimal.Decimal, pct int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(pct))).Div(hundred).Round(2)
}

// Clamp01 bounds v to the closed interval [0, 1].
func Clamp01(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(one) {
		return one
	}
	return v
}

// EffectiveFactor is the fraction of an order's value retained after refunds,
// used to pro-rate tax, fees and margin. A zero total yields zero.
func EffectiveFactor(paid, refunded, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return Clamp01(paid.Sub(refunded).Div(total))
}
