package types

import (
	"math"

	"github.com/angelmondragon/resellr-backend/pkg/enums"
)

// Delta is a signed price adjustment, either an absolute amount or a
// percentage of the base price.
type Delta struct {
	Type  enums.DeltaType `json:"type" validate:"required,oneof=abs percent"`
	Sign  string          `json:"sign" validate:"required,oneof=+ -"`
	Value float64         `json:"value" validate:"gte=0"`
}

// Signed returns the value with the sign applied. Anything other than "-"
// counts as positive.
func (d Delta) Signed() float64 {
	if d.Sign == "-" {
		return -d.Value
	}
	return d.Value
}

// IsPercent reports whether the delta scales with the base price.
func (d Delta) IsPercent() bool {
	return d.Type == enums.DeltaTypePercent
}

// IsFinite guards against NaN and infinities sneaking in from stored JSON.
func (d Delta) IsFinite() bool {
	return !math.IsNaN(d.Value) && !math.IsInf(d.Value, 0)
}

// BreakdownLine is one labelled contribution to a computed price.
type BreakdownLine struct {
	Label string              `json:"label"`
	Delta int64               `json:"delta"`
	Type  enums.BreakdownType `json:"type"`
}

type Breakdown []BreakdownLine

// PricingRules clamp and round a raw computed price.
type PricingRules struct {
	RoundToNearest int64   `json:"roundToNearest" validate:"gte=0"`
	FloorPrice     int64   `json:"floorPrice" validate:"gte=0"`
	MinPercent     float64 `json:"minPercent" validate:"gte=-100"`
	MaxPercent     float64 `json:"maxPercent" validate:"gtefield=MinPercent"`
}

// SellStep is one page of the sell wizard.
type SellStep struct {
	Key   string `json:"key" validate:"required,max=64"`
	Title string `json:"title" validate:"required,max=128"`
	Order int    `json:"order" validate:"gte=0"`
}

type SellSteps []SellStep

// QuestionOption is a selectable answer of a condition question.
type QuestionOption struct {
	Key    string  `json:"key"`
	Label  string  `json:"label"`
	Value  string  `json:"value,omitempty"`
	Delta  *Delta  `json:"delta,omitempty"`
	ShowIf *ShowIf `json:"showIf,omitempty"`
}

// ShowIf hides an option unless another question has one of the given answers.
type ShowIf struct {
	QuestionKey string   `json:"questionKey"`
	OptionKeys  []string `json:"optionKeys"`
}

type QuestionOptions []QuestionOption

// Matches reports whether the option is identified by value, accepting the
// option key, stored value or label.
func (o QuestionOption) Matches(value string) bool {
	if value == "" {
		return false
	}
	return o.Key == value || (o.Value != "" && o.Value == value) || o.Label == value
}

// InlineItem is an agent-observed defect or accessory with a pre-resolved delta.
type InlineItem struct {
	Key   string `json:"key" validate:"required,max=128"`
	Title string `json:"title" validate:"max=256"`
	Delta Delta  `json:"delta"`
}
