package sell

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/resellr-backend/api/responses"
	"github.com/angelmondragon/resellr-backend/api/validators"
	"github.com/angelmondragon/resellr-backend/internal/sessions"
	"github.com/angelmondragon/resellr-backend/pkg/logger"
	"github.com/angelmondragon/resellr-backend/pkg/types"
)

type createSessionRequest struct {
	ProductID   uuid.UUID       `json:"productId" validate:"required"`
	VariantID   uuid.UUID       `json:"variantId" validate:"required"`
	PartnerID   *uuid.UUID      `json:"partnerId,omitempty"`
	Answers     types.AnswerSet `json:"answers,omitempty" validate:"max=64"`
	Defects     []string        `json:"defects,omitempty" validate:"max=64,dive,max=128"`
	Accessories []string        `json:"accessories,omitempty" validate:"max=64,dive,max=128"`
}

type tokenRequest struct {
	SessionToken string `json:"sessionToken,omitempty"`
}

type answersRequest struct {
	SessionToken string          `json:"sessionToken,omitempty"`
	Answers      types.AnswerSet `json:"answers" validate:"max=64"`
}

type keysRequest struct {
	SessionToken string   `json:"sessionToken,omitempty"`
	Defects      []string `json:"defects,omitempty" validate:"max=64,dive,max=128"`
	Accessories  []string `json:"accessories,omitempty" validate:"max=64,dive,max=128"`
}

// SessionCreate starts an offer session and returns its token once.
func SessionCreate(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req createSessionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := svc.Create(r.Context(), sessions.CreateInput{
			UserID:      userID,
			ProductID:   req.ProductID,
			VariantID:   req.VariantID,
			PartnerID:   req.PartnerID,
			Answers:     req.Answers,
			Defects:     req.Defects,
			Accessories: req.Accessories,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, res)
	}
}

// SessionListMine lists the caller's active, unexpired sessions.
func SessionListMine(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListActive(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"sessions": list})
	}
}

func SessionGet(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := sessionAccess(r, "")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Get(r.Context(), access)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// SessionPrice returns the stored pricing snapshot. The token is mandatory.
func SessionPrice(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := sessionAccess(r, "")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		price, err := svc.Price(r.Context(), access)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, price)
	}
}

func SessionUpdateAnswers(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answersRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		access, err := sessionAccess(r, req.SessionToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		price, err := svc.UpdateAnswers(r.Context(), access, req.Answers)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, price)
	}
}

func SessionUpdateDefects(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req keysRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		access, err := sessionAccess(r, req.SessionToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		price, err := svc.UpdateDefects(r.Context(), access, req.Defects)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, price)
	}
}

func SessionUpdateAccessories(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req keysRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		access, err := sessionAccess(r, req.SessionToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		price, err := svc.UpdateAccessories(r.Context(), access, req.Accessories)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, price)
	}
}

// SessionExtend pushes the expiry out by one session TTL from now.
func SessionExtend(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tokenRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		access, err := sessionAccess(r, req.SessionToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := svc.Extend(r.Context(), access)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}

func SessionDelete(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := sessionAccess(r, "")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), access); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true, "sessionId": access.SessionID})
	}
}

func sessionAccess(r *http.Request, bodyToken string) (sessions.Access, error) {
	userID, err := requireUser(r)
	if err != nil {
		return sessions.Access{}, err
	}
	sessionID, err := validators.ParseUUIDParam(r, "sessionId")
	if err != nil {
		return sessions.Access{}, err
	}
	return sessions.Access{
		SessionID: sessionID,
		UserID:    userID,
		Token:     validators.SessionToken(r, bodyToken),
	}, nil
}
