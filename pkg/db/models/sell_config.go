package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/resellr-backend/pkg/types"
)

// SellConfig overrides the wizard steps and pricing rules for one product.
// A nil ProductID marks the global default row.
type SellConfig struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID *uuid.UUID         `gorm:"column:product_id;type:uuid"`
	Steps     types.SellSteps    `gorm:"column:steps;type:jsonb;serializer:json;not null"`
	Rules     types.PricingRules `gorm:"column:rules;type:jsonb;serializer:json;not null"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
