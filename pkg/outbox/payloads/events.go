package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/resellr-backend/pkg/enums"
)

// SellOrderCreatedEvent is emitted when a customer converts an offer session.
type SellOrderCreatedEvent struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	UserID      uuid.UUID `json:"userId"`
	SessionID   uuid.UUID `json:"sessionId"`
	ProductID   uuid.UUID `json:"productId"`
	VariantID   uuid.UUID `json:"variantId"`
	QuoteAmount int64     `json:"quoteAmount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SellOrderAssignedEvent tells the agent app a pickup is theirs.
type SellOrderAssignedEvent struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	AgentID     uuid.UUID `json:"agentId"`
	AssignedAt  time.Time `json:"assignedAt"`
}

// SellOrderStatusEvent covers plain status transitions.
type SellOrderStatusEvent struct {
	OrderID     uuid.UUID             `json:"orderId"`
	OrderNumber string                `json:"orderNumber"`
	UserID      uuid.UUID             `json:"userId"`
	Status      enums.SellOrderStatus `json:"status"`
	Reason      string                `json:"reason,omitempty"`
	ChangedAt   time.Time             `json:"changedAt"`
}

// SellOrderEvaluatedEvent carries the settlement produced by an agent re-evaluation.
type SellOrderEvaluatedEvent struct {
	OrderID          uuid.UUID `json:"orderId"`
	OrderNumber      string    `json:"orderNumber"`
	UserID           uuid.UUID `json:"userId"`
	AgentID          uuid.UUID `json:"agentId"`
	QuoteAmount      int64     `json:"quoteAmount"`
	ReEvaluatedPrice int64     `json:"reEvaluatedPrice"`
	Negotiation      int64     `json:"negotiation"`
	ProcessingFee    int64     `json:"processingFee"`
	FinalPrice       int64     `json:"finalPrice"`
	EvaluatedAt      time.Time `json:"evaluatedAt"`
}
