// Package pricing turns a base price and a set of pre-resolved adjustments
// into a final price and an itemized breakdown. It is pure: no I/O, no clock.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/resellr-backend/pkg/enums"
	"github.com/angelmondragon/resellr-backend/pkg/types"
)

const BaseLabel = "Base Price"

// ErrInvalidBasePrice is returned when the base price is not strictly positive.
var ErrInvalidBasePrice = errors.New("base price must be a positive amount")

// Adjustment is a resolved delta together with how it should be displayed.
type Adjustment struct {
	Label string
	Type  enums.BreakdownType
	Delta types.Delta
}

// Quote is the result of one evaluation.
type Quote struct {
	BasePrice     int64           `json:"basePrice"`
	RawPrice      int64           `json:"rawPrice"`
	FinalPrice    int64           `json:"finalPrice"`
	PercentTotal  float64         `json:"percentTotal"`
	AbsoluteTotal float64         `json:"absoluteTotal"`
	Negotiation   int64           `json:"negotiation,omitempty"`
	Breakdown     types.Breakdown `json:"breakdown"`
}

// Evaluate accumulates percent and absolute adjustments separately and
// computes round(base * (1 + percent/100) + absolute). When rules is non-nil
// the result is clamped and rounded through ApplyRules.
func Evaluate(basePrice int64, adjustments []Adjustment, rules *types.PricingRules) (Quote, error) {
	if basePrice <= 0 {
		return Quote{}, ErrInvalidBasePrice
	}

	breakdown := make(types.Breakdown, 0, len(adjustments)+1)
	breakdown = append(breakdown, types.BreakdownLine{
		Label: BaseLabel,
		Delta: basePrice,
		Type:  enums.BreakdownBase,
	})

	percentAccum := decimal.Zero
	absAccum := decimal.Zero
	for _, adj := range adjustments {
		if !adj.Delta.IsFinite() {
			continue
		}
		signed := decimal.NewFromFloat(adj.Delta.Signed())

		var display int64
		if adj.Delta.IsPercent() {
			percentAccum = percentAccum.Add(signed)
			display = roundHalfUp(percentOf(basePrice, signed))
		} else {
			absAccum = absAccum.Add(signed)
			display = roundHalfUp(signed)
		}

		lineType := adj.Type
		if lineType == "" {
			lineType = enums.BreakdownAdjustment
		}
		breakdown = append(breakdown, types.BreakdownLine{
			Label: adj.Label,
			Delta: display,
			Type:  lineType,
		})
	}

	base := decimal.NewFromInt(basePrice)
	raw := roundHalfUp(base.Add(percentOf(basePrice, percentAccum)).Add(absAccum))

	final := raw
	if rules != nil {
		final = ApplyRules(basePrice, raw, *rules)
	}

	return Quote{
		BasePrice:     basePrice,
		RawPrice:      raw,
		FinalPrice:    final,
		PercentTotal:  percentAccum.InexactFloat64(),
		AbsoluteTotal: absAccum.InexactFloat64(),
		Breakdown:     breakdown,
	}, nil
}

// WithNegotiation appends a flat signed amount as its own breakdown line and
// adds it to the final price. A zero amount leaves the quote untouched.
func (q Quote) WithNegotiation(amount int64) Quote {
	if amount == 0 {
		return q
	}
	out := q
	out.Breakdown = append(append(types.Breakdown(nil), q.Breakdown...), types.BreakdownLine{
		Label: "Negotiation",
		Delta: amount,
		Type:  enums.BreakdownNegotiation,
	})
	out.Negotiation = q.Negotiation + amount
	out.FinalPrice = q.FinalPrice + amount
	return out
}
