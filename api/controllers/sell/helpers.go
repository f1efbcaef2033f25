package sell

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/resellr-backend/api/middleware"
	"github.com/angelmondragon/resellr-backend/api/validators"
	pkgerrors "github.com/angelmondragon/resellr-backend/pkg/errors"
	"github.com/angelmondragon/resellr-backend/pkg/pagination"
)

// globalConfigKey addresses the global sell configuration in place of a product id.
const globalConfigKey = "default"

func requireUser(r *http.Request) (uuid.UUID, error) {
	userID, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid user context")
	}
	return userID, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

// configProductID maps "default" to the global scope (nil).
func configProductID(r *http.Request) (*uuid.UUID, error) {
	if strings.EqualFold(strings.TrimSpace(chi.URLParam(r, "productId")), globalConfigKey) {
		return nil, nil
	}
	id, err := validators.ParseUUIDParam(r, "productId")
	if err != nil {
		return nil, err
	}
	return &id, nil
}
