package sell

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/resellr-backend/api/responses"
	"github.com/angelmondragon/resellr-backend/api/validators"
	"github.com/angelmondragon/resellr-backend/internal/pricing"
	"github.com/angelmondragon/resellr-backend/internal/sellconfig"
	"github.com/angelmondragon/resellr-backend/internal/sellorders"
	"github.com/angelmondragon/resellr-backend/pkg/enums"
	"github.com/angelmondragon/resellr-backend/pkg/logger"
	"github.com/angelmondragon/resellr-backend/pkg/types"
)

// SessionCleaner removes expired sessions on demand.
type SessionCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

type updateConfigRequest struct {
	Steps *types.SellSteps    `json:"steps,omitempty" validate:"omitempty,max=32,dive"`
	Rules *types.PricingRules `json:"rules,omitempty"`
}

type testAdjustment struct {
	Label string              `json:"label" validate:"max=128"`
	Type  enums.BreakdownType `json:"type,omitempty"`
	Delta types.Delta         `json:"delta"`
}

type testPricingRequest struct {
	BasePrice   int64               `json:"basePrice" validate:"required,gt=0"`
	Adjustments []testAdjustment    `json:"adjustments" validate:"max=128,dive"`
	Rules       *types.PricingRules `json:"rules,omitempty"`
}

type assignRequest struct {
	AgentID uuid.UUID `json:"agentId" validate:"required"`
}

func AdminConfigUpdate(svc sellconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := configProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateConfigRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := svc.Update(r.Context(), productID, sellconfig.UpdateInput{Steps: req.Steps, Rules: req.Rules})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cfg)
	}
}

func AdminConfigDelete(svc sellconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := configProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}

// AdminConfigReset rewrites the stored configuration with the built-in defaults.
func AdminConfigReset(svc sellconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := configProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := svc.Reset(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cfg)
	}
}

// AdminConfigTestPricing is a dry run of the evaluator against the product's rules.
func AdminConfigTestPricing(svc sellconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := configProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req testPricingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		adjustments := make([]pricing.Adjustment, 0, len(req.Adjustments))
		for _, adj := range req.Adjustments {
			kind := adj.Type
			if kind == "" {
				kind = enums.BreakdownAdjustment
			}
			adjustments = append(adjustments, pricing.Adjustment{Label: adj.Label, Type: kind, Delta: adj.Delta})
		}
		quote, err := svc.TestPricing(r.Context(), productID, sellconfig.TestPricingInput{
			BasePrice:   req.BasePrice,
			Adjustments: adjustments,
			Rules:       req.Rules,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

func AdminSessionsCleanup(svc SessionCleaner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deleted, err := svc.CleanupExpired(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": deleted})
	}
}

func AdminOrderAssign(svc sellorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req assignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Assign(r.Context(), orderID, req.AgentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func AdminOrderComplete(svc sellorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Complete(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
