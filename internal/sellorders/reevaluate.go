package sellorders

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/resellr-backend/internal/catalog"
	"github.com/angelmondragon/resellr-backend/internal/pricing"
	"github.com/angelmondragon/resellr-backend/pkg/db/models"
	"github.com/angelmondragon/resellr-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/resellr-backend/pkg/errors"
	"github.com/angelmondragon/resellr-backend/pkg/outbox"
	"github.com/angelmondragon/resellr-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/resellr-backend/pkg/types"
)

// ReEvaluateInput is what the agent observed on the physical device. Every
// answer, defect and accessory carries its own resolved delta.
type ReEvaluateInput struct {
	OrderID     uuid.UUID
	AgentID     uuid.UUID
	Answers     types.AnswerSet
	Defects     []types.InlineItem
	Accessories []types.InlineItem
	AgentNotes  string
	Negotiation int64
}

// ReEvaluate prices the device again from the agent's findings, applies the
// negotiation and processing fee and moves the order to evaluated.
func (s *service) ReEvaluate(ctx context.Context, input ReEvaluateInput) (*ReEvaluateResult, error) {
	if err := validateInlineDeltas(input); err != nil {
		return nil, err
	}

	var (
		updated    *models.SellOrder
		comparison PriceComparison
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !order.IsAssignedTo(input.AgentID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this agent")
		}
		if order.Status != enums.SellOrderStatusConfirmed && order.Status != enums.SellOrderStatusPickedUp {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot re-evaluate an order in status %s", order.Status)
		}

		variant, err := s.variants.FindVariant(ctx, order.ProductID, order.VariantID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		if err != nil {
			return err
		}

		adjustments := catalog.InlineAdjustments(input.Answers, input.Defects, input.Accessories)
		quote, err := pricing.Evaluate(variant.BasePrice, adjustments, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
		}
		negotiated := quote.WithNegotiation(input.Negotiation)
		settlement := settle(negotiated.FinalPrice, s.fee)

		now := s.now().UTC()
		comparison = PriceComparison{
			Original:      PriceSide{Amount: order.QuoteAmount, Breakdown: nonNil(order.QuoteBreakdown)},
			ReEvaluated:   PriceSide{Amount: quote.FinalPrice, Breakdown: negotiated.Breakdown},
			Negotiation:   input.Negotiation,
			Subtotal:      negotiated.FinalPrice,
			ProcessingFee: s.fee,
			TotalAmount:   settlement,
			Difference:    negotiated.FinalPrice - order.QuoteAmount,
		}

		reEvaluated := quote.FinalPrice
		order.ActualAmount = &reEvaluated
		order.FinalPrice = &settlement
		order.Status = enums.SellOrderStatusEvaluated
		order.EvaluatedAt = &now
		order.EvaluationData = &types.Evaluation{
			EvaluatorID:       input.AgentID,
			Answers:           input.Answers,
			Defects:           input.Defects,
			Accessories:       input.Accessories,
			AgentNotes:        strings.TrimSpace(input.AgentNotes),
			BasePrice:         variant.BasePrice,
			OriginalPrice:     order.QuoteAmount,
			OriginalBreakdown: order.QuoteBreakdown,
			ReEvaluatedPrice:  reEvaluated,
			Breakdown:         negotiated.Breakdown,
			Negotiation:       input.Negotiation,
			Subtotal:          negotiated.FinalPrice,
			ProcessingFee:     s.fee,
			FinalPrice:        settlement,
			EvaluatedAt:       now,
		}
		if err := repo.Save(ctx, order); err != nil {
			return err
		}
		updated = order

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSellOrderEvaluated,
			AggregateType: enums.AggregateSellOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.AgentID, Role: string(enums.UserRoleAgent)},
			OccurredAt:    now,
			Data: payloads.SellOrderEvaluatedEvent{
				OrderID:          order.ID,
				OrderNumber:      order.OrderNumber,
				UserID:           order.UserID,
				AgentID:          input.AgentID,
				QuoteAmount:      order.QuoteAmount,
				ReEvaluatedPrice: reEvaluated,
				Negotiation:      input.Negotiation,
				ProcessingFee:    s.fee,
				FinalPrice:       settlement,
				EvaluatedAt:      now,
			},
		})
	})
	if err != nil {
		return nil, asServiceError(err, "re-evaluate sell order")
	}

	s.metrics.ObserveReEvaluation(comparison.Difference)
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, updated.ID.String()), map[string]any{
		"agent_id":    input.AgentID.String(),
		"final_price": comparison.TotalAmount,
		"difference":  comparison.Difference,
	})
	s.logg.Info(logCtx, "sell_order.re_evaluated")

	return &ReEvaluateResult{Order: toOrderDTO(updated), PriceComparison: comparison}, nil
}

// settle deducts the processing fee. A settlement never goes below zero.
func settle(subtotal, fee int64) int64 {
	if total := subtotal - fee; total > 0 {
		return total
	}
	return 0
}

func validateInlineDeltas(input ReEvaluateInput) error {
	details := map[string]string{}
	check := func(field string, d types.Delta) {
		switch {
		case !d.Type.IsValid():
			details[field] = "delta type must be abs or percent"
		case d.Sign != "+" && d.Sign != "-":
			details[field] = "delta sign must be + or -"
		case !d.IsFinite() || d.Value < 0:
			details[field] = "delta value must be a non-negative number"
		}
	}
	for _, a := range input.Answers {
		if a.Delta != nil {
			check("answers."+a.Key, *a.Delta)
		}
	}
	for _, item := range input.Defects {
		check("defects."+item.Key, item.Delta)
	}
	for _, item := range input.Accessories {
		check("accessories."+item.Key, item.Delta)
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid re-evaluation deltas").WithDetails(details)
	}
	return nil
}

func nonNil(b types.Breakdown) types.Breakdown {
	if b == nil {
		return types.Breakdown{}
	}
	return b
}
