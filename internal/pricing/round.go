package pricing

import "github.com/shopspring/decimal"

var (
	half    = decimal.NewFromFloat(0.5)
	hundred = decimal.NewFromInt(100)
)

// roundHalfUp rounds to the nearest integer with ties going toward positive
// infinity, so -2.5 becomes -2 and 2.5 becomes 3.
func roundHalfUp(d decimal.Decimal) int64 {
	return d.Add(half).Floor().IntPart()
}

// percentOf returns base * pct / 100 without binary float drift.
func percentOf(base int64, pct decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(base).Mul(pct).Div(hundred)
}
