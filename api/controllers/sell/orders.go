package sell

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/resellr-backend/api/responses"
	"github.com/angelmondragon/resellr-backend/api/validators"
	"github.com/angelmondragon/resellr-backend/internal/pickup"
	"github.com/angelmondragon/resellr-backend/internal/sellorders"
	"github.com/angelmondragon/resellr-backend/pkg/logger"
	"github.com/angelmondragon/resellr-backend/pkg/types"
)

// PickupCodes issues and checks the one-time handover code for an order.
type PickupCodes interface {
	Issue(ctx context.Context, userID, orderID uuid.UUID) (*pickup.IssueResult, error)
	Verify(ctx context.Context, agentID, orderID uuid.UUID, code string) (*sellorders.OrderDTO, error)
}

type createOrderRequest struct {
	SessionID    uuid.UUID           `json:"sessionId" validate:"required"`
	SessionToken string              `json:"sessionToken,omitempty"`
	Pickup       types.PickupDetails `json:"pickup"`
	Payout       types.PayoutDetails `json:"payout"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=512"`
}

// OrderCreate converts an active session into a confirmed sell order.
func OrderCreate(svc sellorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Create(r.Context(), sellorders.CreateInput{
			UserID:       userID,
			SessionID:    req.SessionID,
			SessionToken: validators.SessionToken(r, req.SessionToken),
			Pickup:       req.Pickup,
			Payout:       req.Payout,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, order)
	}
}

func OrderList(svc sellorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListForUser(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func OrderDetail(svc sellorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func OrderCancel(svc sellorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req cancelOrderRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Cancel(r.Context(), sellorders.CancelInput{
			UserID:  userID,
			OrderID: orderID,
			Reason:  validators.SanitizeString(req.Reason, 512),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderPickupCode issues a fresh pickup code the seller hands to the agent.
func OrderPickupCode(codes PickupCodes, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := codes.Issue(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, res)
	}
}
