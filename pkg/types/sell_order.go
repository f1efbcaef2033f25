package types

import (
	"time"

	"github.com/angelmondragon/resellr-backend/pkg/enums"
	"github.com/google/uuid"
)

// PickupDetails is where and when the agent collects the device.
type PickupDetails struct {
	ContactName string     `json:"contactName" validate:"required,max=128"`
	Phone       string     `json:"phone" validate:"required,min=7,max=20"`
	Line1       string     `json:"line1" validate:"required,max=256"`
	Line2       string     `json:"line2,omitempty" validate:"max=256"`
	City        string     `json:"city" validate:"required,max=128"`
	State       string     `json:"state,omitempty" validate:"max=128"`
	PostalCode  string     `json:"postalCode" validate:"required,max=16"`
	PreferredAt *time.Time `json:"preferredAt,omitempty"`
	Notes       string     `json:"notes,omitempty" validate:"max=1024"`
}

// PayoutDetails is how the seller is paid once the order settles.
type PayoutDetails struct {
	Method        enums.PayoutMethod `json:"method" validate:"required,oneof=cash bank_transfer upi"`
	AccountName   string             `json:"accountName,omitempty" validate:"max=128"`
	AccountNumber string             `json:"accountNumber,omitempty" validate:"max=34"`
	RoutingCode   string             `json:"routingCode,omitempty" validate:"max=16"`
	UPIID         string             `json:"upiId,omitempty" validate:"max=128"`
}

// Evaluation is the agent's physical re-evaluation of a sell order.
type Evaluation struct {
	EvaluatorID       uuid.UUID    `json:"evaluatorId"`
	Answers           AnswerSet    `json:"answers"`
	Defects           []InlineItem `json:"defects"`
	Accessories       []InlineItem `json:"accessories"`
	AgentNotes        string       `json:"agentNotes,omitempty"`
	BasePrice         int64        `json:"basePrice"`
	OriginalPrice     int64        `json:"originalPrice"`
	OriginalBreakdown Breakdown    `json:"originalBreakdown"`
	ReEvaluatedPrice  int64        `json:"reEvaluatedPrice"`
	Breakdown         Breakdown    `json:"breakdown"`
	Negotiation       int64        `json:"negotiation"`
	Subtotal          int64        `json:"subtotal"`
	ProcessingFee     int64        `json:"processingFee"`
	FinalPrice        int64        `json:"finalPrice"`
	EvaluatedAt       time.Time    `json:"evaluatedAt"`
}
