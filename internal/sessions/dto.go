package sessions

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/resellr-backend/pkg/db/models"
	"github.com/angelmondragon/resellr-backend/pkg/types"
)

// SessionDTO is the externally visible session. The token digest never leaves
// the service.
type SessionDTO struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"userId"`
	ProductID   uuid.UUID       `json:"productId"`
	VariantID   uuid.UUID       `json:"variantId"`
	PartnerID   *uuid.UUID      `json:"partnerId,omitempty"`
	Answers     types.AnswerSet `json:"answers"`
	Defects     []string        `json:"defects"`
	Accessories []string        `json:"accessories"`
	BasePrice   int64           `json:"basePrice"`
	FinalPrice  int64           `json:"finalPrice"`
	Breakdown   types.Breakdown `json:"breakdown"`
	IsActive    bool            `json:"isActive"`
	ExpiresAt   time.Time       `json:"expiresAt"`
	ComputedAt  time.Time       `json:"computedAt"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// CreateResult is returned once, at creation, and is the only place the
// session token is exposed.
type CreateResult struct {
	Session      SessionDTO `json:"session"`
	SessionToken string     `json:"sessionToken"`
}

// PriceDTO is the pricing snapshot of a session.
type PriceDTO struct {
	SessionID  uuid.UUID       `json:"sessionId"`
	BasePrice  int64           `json:"basePrice"`
	FinalPrice int64           `json:"finalPrice"`
	Breakdown  types.Breakdown `json:"breakdown"`
	ComputedAt time.Time       `json:"computedAt"`
	ExpiresAt  time.Time       `json:"expiresAt"`
}

type ExtendResult struct {
	SessionID uuid.UUID `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ActiveSessionDTO enriches a session with catalog data read at request time.
type ActiveSessionDTO struct {
	SessionDTO
	ProductName  string `json:"productName"`
	Brand        string `json:"brand"`
	VariantLabel string `json:"variantLabel"`
	// CurrentBasePrice is the variant price now, which may differ from the
	// base price the session was last computed with.
	CurrentBasePrice int64 `json:"currentBasePrice"`
}

func toSessionDTO(s *models.OfferSession) SessionDTO {
	answers := s.Answers
	if answers == nil {
		answers = types.AnswerSet{}
	}
	return SessionDTO{
		ID:          s.ID,
		UserID:      s.UserID,
		ProductID:   s.ProductID,
		VariantID:   s.VariantID,
		PartnerID:   s.PartnerID,
		Answers:     answers,
		Defects:     nonNil(s.Defects),
		Accessories: nonNil(s.Accessories),
		BasePrice:   s.BasePrice,
		FinalPrice:  s.FinalPrice,
		Breakdown:   s.Breakdown,
		IsActive:    s.IsActive,
		ExpiresAt:   s.ExpiresAt,
		ComputedAt:  s.ComputedAt,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func toPriceDTO(s *models.OfferSession) PriceDTO {
	return PriceDTO{
		SessionID:  s.ID,
		BasePrice:  s.BasePrice,
		FinalPrice: s.FinalPrice,
		Breakdown:  s.Breakdown,
		ComputedAt: s.ComputedAt,
		ExpiresAt:  s.ExpiresAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
