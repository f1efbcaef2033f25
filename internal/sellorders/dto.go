package sellorders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/resellr-backend/pkg/db/models"
	"github.com/angelmondragon/resellr-backend/pkg/enums"
	"github.com/angelmondragon/resellr-backend/pkg/types"
)

// OrderDTO is the API representation of a sell order.
type OrderDTO struct {
	ID             uuid.UUID             `json:"id"`
	OrderNumber    string                `json:"orderNumber"`
	UserID         uuid.UUID             `json:"userId"`
	SessionID      uuid.UUID             `json:"sessionId"`
	ProductID      uuid.UUID             `json:"productId"`
	VariantID      uuid.UUID             `json:"variantId"`
	Status         enums.SellOrderStatus `json:"status"`
	Pickup         types.PickupDetails   `json:"pickup"`
	Payout         types.PayoutDetails   `json:"payout"`
	QuoteAmount    int64                 `json:"quoteAmount"`
	QuoteBreakdown types.Breakdown       `json:"quoteBreakdown"`
	ActualAmount   *int64                `json:"actualAmount,omitempty"`
	FinalPrice     *int64                `json:"finalPrice,omitempty"`
	AssignedTo     *uuid.UUID            `json:"assignedTo,omitempty"`
	AssignedAt     *time.Time            `json:"assignedAt,omitempty"`
	EvaluationData *types.Evaluation     `json:"evaluationData,omitempty"`
	PickedUpAt     *time.Time            `json:"pickedUpAt,omitempty"`
	EvaluatedAt    *time.Time            `json:"evaluatedAt,omitempty"`
	CompletedAt    *time.Time            `json:"completedAt,omitempty"`
	CancelledAt    *time.Time            `json:"cancelledAt,omitempty"`
	CancelReason   *string               `json:"cancelReason,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

// OrderList is one page of orders.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// PriceSide is one column of a price comparison.
type PriceSide struct {
	Amount    int64           `json:"amount"`
	Breakdown types.Breakdown `json:"breakdown"`
}

// PriceComparison contrasts the online quote with the agent's findings.
type PriceComparison struct {
	Original      PriceSide `json:"original"`
	ReEvaluated   PriceSide `json:"reEvaluated"`
	Negotiation   int64     `json:"negotiation"`
	Subtotal      int64     `json:"subtotal"`
	ProcessingFee int64     `json:"processingFee"`
	TotalAmount   int64     `json:"totalAmount"`
	Difference    int64     `json:"difference"`
}

type ReEvaluateResult struct {
	Order           OrderDTO        `json:"order"`
	PriceComparison PriceComparison `json:"priceComparison"`
}

func toOrderDTO(o *models.SellOrder) OrderDTO {
	breakdown := o.QuoteBreakdown
	if breakdown == nil {
		breakdown = types.Breakdown{}
	}
	return OrderDTO{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		UserID:         o.UserID,
		SessionID:      o.SessionID,
		ProductID:      o.ProductID,
		VariantID:      o.VariantID,
		Status:         o.Status,
		Pickup:         o.Pickup,
		Payout:         o.Payout,
		QuoteAmount:    o.QuoteAmount,
		QuoteBreakdown: breakdown,
		ActualAmount:   o.ActualAmount,
		FinalPrice:     o.FinalPrice,
		AssignedTo:     o.AssignedTo,
		AssignedAt:     o.AssignedAt,
		EvaluationData: o.EvaluationData,
		PickedUpAt:     o.PickedUpAt,
		EvaluatedAt:    o.EvaluatedAt,
		CompletedAt:    o.CompletedAt,
		CancelledAt:    o.CancelledAt,
		CancelReason:   o.CancelReason,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func toOrderDTOs(rows []models.SellOrder) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toOrderDTO(&rows[i]))
	}
	return out
}
