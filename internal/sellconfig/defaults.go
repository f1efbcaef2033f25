package sellconfig

import (
	"github.com/angelmondragon/resellr-backend/internal/pricing"
	"github.com/angelmondragon/resellr-backend/pkg/types"
)

// DefaultSteps is the built-in five step wizard.
func DefaultSteps() types.SellSteps {
	return types.SellSteps{
		{Key: "variant", Title: "Select Variant", Order: 1},
		{Key: "questions", Title: "Device Condition", Order: 2},
		{Key: "defects", Title: "Defects", Order: 3},
		{Key: "accessories", Title: "Accessories", Order: 4},
		{Key: "summary", Title: "Summary", Order: 5},
	}
}

// DefaultConfig is served whenever nothing is persisted. It is never written
// implicitly.
func DefaultConfig() Config {
	return Config{
		Source: SourceBuiltin,
		Steps:  DefaultSteps(),
		Rules:  pricing.DefaultRules(),
	}
}
