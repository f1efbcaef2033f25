package sell

import (
	"net/http"

	"github.com/angelmondragon/resellr-backend/api/responses"
	"github.com/angelmondragon/resellr-backend/api/validators"
	"github.com/angelmondragon/resellr-backend/internal/catalog"
	"github.com/angelmondragon/resellr-backend/internal/sellconfig"
	pkgerrors "github.com/angelmondragon/resellr-backend/pkg/errors"
	"github.com/angelmondragon/resellr-backend/pkg/logger"
)

// CatalogWizard returns the product, its variants and the condition questions.
func CatalogWizard(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		wizard, err := svc.Wizard(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, wizard)
	}
}

// ConfigGet returns the effective sell configuration; "default" reads the global one.
func ConfigGet(svc sellconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sell config service unavailable"))
			return
		}
		productID, err := configProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cfg)
	}
}
