package sell

import (
	"net/http"

	"github.com/angelmondragon/resellr-backend/api/responses"
	"github.com/angelmondragon/resellr-backend/api/validators"
	"github.com/angelmondragon/resellr-backend/internal/sellorders"
	"github.com/angelmondragon/resellr-backend/pkg/logger"
	"github.com/angelmondragon/resellr-backend/pkg/types"
)

type verifyPickupRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

type reEvaluateRequest struct {
	Answers     types.AnswerSet    `json:"answers" validate:"max=64"`
	Defects     []types.InlineItem `json:"defects" validate:"max=64,dive"`
	Accessories []types.InlineItem `json:"accessories" validate:"max=64,dive"`
	AgentNotes  string             `json:"agentNotes,omitempty" validate:"max=2048"`
	Negotiation int64              `json:"negotiation"`
}

// AgentOrders lists the orders assigned to the calling agent that still await pickup or evaluation.
func AgentOrders(svc sellorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListAssigned(r.Context(), agentID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AgentOrderDetail(svc sellorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetAssigned(r.Context(), agentID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AgentVerifyPickup checks the seller's code and marks the order picked up.
func AgentVerifyPickup(codes PickupCodes, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req verifyPickupRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := codes.Verify(r.Context(), agentID, orderID, req.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AgentReEvaluate prices the device from the agent's inspection.
func AgentReEvaluate(svc sellorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req reEvaluateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := svc.ReEvaluate(r.Context(), sellorders.ReEvaluateInput{
			OrderID:     orderID,
			AgentID:     agentID,
			Answers:     req.Answers,
			Defects:     req.Defects,
			Accessories: req.Accessories,
			AgentNotes:  validators.SanitizeString(req.AgentNotes, 2048),
			Negotiation: req.Negotiation,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}
