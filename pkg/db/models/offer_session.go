package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/resellr-backend/pkg/types"
)

// OfferSession is a time-boxed draft quote a user builds in the sell wizard.
// Only the HMAC digest of the session token is stored.
type OfferSession struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VariantID   uuid.UUID       `gorm:"column:variant_id;type:uuid;not null"`
	PartnerID   *uuid.UUID      `gorm:"column:partner_id;type:uuid"`
	Answers     types.AnswerSet `gorm:"column:answers;type:jsonb;serializer:json"`
	Defects     []string        `gorm:"column:defects;type:jsonb;serializer:json"`
	Accessories []string        `gorm:"column:accessories;type:jsonb;serializer:json"`
	BasePrice   int64           `gorm:"column:base_price;not null"`
	FinalPrice  int64           `gorm:"column:final_price;not null"`
	Breakdown   types.Breakdown `gorm:"column:breakdown;type:jsonb;serializer:json"`
	TokenHash   string          `gorm:"column:token_hash;not null"`
	IsActive    bool            `gorm:"column:is_active;not null;default:true"`
	ExpiresAt   time.Time       `gorm:"column:expires_at;not null"`
	ComputedAt  time.Time       `gorm:"column:computed_at;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (OfferSession) TableName() string { return "sell_offer_sessions" }

// IsExpired reports whether the session is past its expiry at now.
func (s *OfferSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
