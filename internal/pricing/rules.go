package pricing

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/resellr-backend/pkg/errors"
	"github.com/angelmondragon/resellr-backend/pkg/types"
)

// DefaultRules are used when neither the product nor the global default row
// carries a configuration.
func DefaultRules() types.PricingRules {
	return types.PricingRules{
		RoundToNearest: 10,
		FloorPrice:     0,
		MinPercent:     -90,
		MaxPercent:     50,
	}
}

// ApplyRules bounds rawPrice to [base*(1+min/100), base*(1+max/100)], then
// applies the absolute floor, then rounds to the nearest RoundToNearest.
func ApplyRules(basePrice, rawPrice int64, rules types.PricingRules) int64 {
	price := decimal.NewFromInt(rawPrice)

	lower := decimal.NewFromInt(basePrice).Add(percentOf(basePrice, decimal.NewFromFloat(rules.MinPercent)))
	upper := decimal.NewFromInt(basePrice).Add(percentOf(basePrice, decimal.NewFromFloat(rules.MaxPercent)))
	if price.LessThan(lower) {
		price = lower
	}
	if price.GreaterThan(upper) {
		price = upper
	}

	floor := decimal.NewFromInt(rules.FloorPrice)
	if price.LessThan(floor) {
		price = floor
	}

	if rules.RoundToNearest <= 0 {
		return roundHalfUp(price)
	}
	step := decimal.NewFromInt(rules.RoundToNearest)
	return roundHalfUp(price.Div(step)) * rules.RoundToNearest
}

// ValidateRules checks a rules document before it is persisted or used in a
// dry run.
func ValidateRules(rules types.PricingRules) error {
	details := map[string]string{}
	if rules.RoundToNearest < 0 {
		details["roundToNearest"] = "must be zero or positive"
	}
	if rules.FloorPrice < 0 {
		details["floorPrice"] = "must be zero or positive"
	}
	if rules.MinPercent < -100 {
		details["minPercent"] = "must be at least -100"
	}
	if rules.MaxPercent < rules.MinPercent {
		details["maxPercent"] = "must be greater than or equal to minPercent"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid pricing rules").WithDetails(details)
	}
	return nil
}
