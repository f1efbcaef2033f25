package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/resellr-backend/pkg/enums"
	"github.com/angelmondragon/resellr-backend/pkg/types"
)

// SellOrder is the committed outcome of an offer session. One per session.
type SellOrder struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	SessionID      uuid.UUID             `gorm:"column:session_id;type:uuid;not null"`
	ProductID      uuid.UUID             `gorm:"column:product_id;type:uuid;not null"`
	VariantID      uuid.UUID             `gorm:"column:variant_id;type:uuid;not null"`
	OrderNumber    string                `gorm:"column:order_number;not null"`
	Status         enums.SellOrderStatus `gorm:"column:status;not null;default:'confirmed'"`
	Pickup         types.PickupDetails   `gorm:"column:pickup;type:jsonb;serializer:json"`
	Payout         types.PayoutDetails   `gorm:"column:payout;type:jsonb;serializer:json"`
	QuoteAmount    int64                 `gorm:"column:quote_amount;not null"`
	QuoteBreakdown types.Breakdown       `gorm:"column:quote_breakdown;type:jsonb;serializer:json"`
	ActualAmount   *int64                `gorm:"column:actual_amount"`
	FinalPrice     *int64                `gorm:"column:final_price"`
	AssignedTo     *uuid.UUID            `gorm:"column:assigned_to;type:uuid"`
	AssignedAt     *time.Time            `gorm:"column:assigned_at"`
	EvaluationData *types.Evaluation     `gorm:"column:evaluation_data;type:jsonb;serializer:json"`
	PickedUpAt     *time.Time            `gorm:"column:picked_up_at"`
	EvaluatedAt    *time.Time            `gorm:"column:evaluated_at"`
	CompletedAt    *time.Time            `gorm:"column:completed_at"`
	CancelledAt    *time.Time            `gorm:"column:cancelled_at"`
	CancelReason   *string               `gorm:"column:cancel_reason"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// IsAssignedTo reports whether the order is currently assigned to agentID.
func (o *SellOrder) IsAssignedTo(agentID uuid.UUID) bool {
	return o.AssignedTo != nil && *o.AssignedTo == agentID
}
