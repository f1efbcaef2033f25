package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/resellr-backend/api/controllers"
	sellcontrollers "github.com/angelmondragon/resellr-backend/api/controllers/sell"
	"github.com/angelmondragon/resellr-backend/api/middleware"
	"github.com/angelmondragon/resellr-backend/internal/catalog"
	"github.com/angelmondragon/resellr-backend/internal/sellconfig"
	"github.com/angelmondragon/resellr-backend/internal/sellorders"
	"github.com/angelmondragon/resellr-backend/internal/sessions"
	"github.com/angelmondragon/resellr-backend/pkg/config"
	"github.com/angelmondragon/resellr-backend/pkg/enums"
	"github.com/angelmondragon/resellr-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/resellr-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP layer uses for
// idempotency records and rate limiting.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Services groups the domain services served over HTTP.
type Services struct {
	Catalog    catalog.Service
	Sessions   sessions.Service
	SellConfig sellconfig.Service
	Orders     sellorders.Service
	Pickup     sellcontrollers.PickupCodes
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	pingers map[string]controllers.Pinger,
	store RedisStore,
	metricsHandler http.Handler,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	sessionCreatePolicy := middleware.NewRateLimitPolicy(
		"session_create",
		cfg.RateLimit.SessionCreateWindow,
		cfg.RateLimit.SessionCreateIPLimit,
		cfg.RateLimit.SessionCreateUserLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	idempotency := middleware.Idempotency(store, cfg.Eventing.IdempotencyTTL, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(idempotency)

		r.Route("/sell", func(r chi.Router) {
			r.Get("/catalog/{productId}", sellcontrollers.CatalogWizard(svc.Catalog, logg))
			r.Get("/config/{productId}", sellcontrollers.ConfigGet(svc.SellConfig, logg))

			r.Route("/sessions", func(r chi.Router) {
				r.With(middleware.RateLimit(sessionCreatePolicy, store, logg)).Post("/", sellcontrollers.SessionCreate(svc.Sessions, logg))
				r.Get("/mine", sellcontrollers.SessionListMine(svc.Sessions, logg))
				r.Route("/{sessionId}", func(r chi.Router) {
					r.Get("/", sellcontrollers.SessionGet(svc.Sessions, logg))
					r.Delete("/", sellcontrollers.SessionDelete(svc.Sessions, logg))
					r.Get("/price", sellcontrollers.SessionPrice(svc.Sessions, logg))
					r.Put("/answers", sellcontrollers.SessionUpdateAnswers(svc.Sessions, logg))
					r.Put("/defects", sellcontrollers.SessionUpdateDefects(svc.Sessions, logg))
					r.Put("/accessories", sellcontrollers.SessionUpdateAccessories(svc.Sessions, logg))
					r.Post("/extend", sellcontrollers.SessionExtend(svc.Sessions, logg))
				})
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", sellcontrollers.OrderCreate(svc.Orders, logg))
				r.Get("/", sellcontrollers.OrderList(svc.Orders, logg))
				r.Get("/{orderId}", sellcontrollers.OrderDetail(svc.Orders, logg))
				r.Post("/{orderId}/cancel", sellcontrollers.OrderCancel(svc.Orders, logg))
				r.Post("/{orderId}/pickup-code", sellcontrollers.OrderPickupCode(svc.Pickup, logg))
			})
		})

		r.Route("/agent", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleAgent))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", sellcontrollers.AgentOrders(svc.Orders, logg))
				r.Get("/{orderId}", sellcontrollers.AgentOrderDetail(svc.Orders, logg))
				r.Post("/{orderId}/verify-pickup", sellcontrollers.AgentVerifyPickup(svc.Pickup, logg))
				r.Post("/{orderId}/re-evaluate", sellcontrollers.AgentReEvaluate(svc.Orders, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		r.Use(idempotency)

		r.Route("/sell", func(r chi.Router) {
			r.Route("/config/{productId}", func(r chi.Router) {
				r.Post("/", sellcontrollers.AdminConfigUpdate(svc.SellConfig, logg))
				r.Delete("/", sellcontrollers.AdminConfigDelete(svc.SellConfig, logg))
				r.Post("/reset", sellcontrollers.AdminConfigReset(svc.SellConfig, logg))
				r.Post("/test-pricing", sellcontrollers.AdminConfigTestPricing(svc.SellConfig, logg))
			})
			r.Post("/sessions/cleanup", sellcontrollers.AdminSessionsCleanup(svc.Sessions, logg))
			r.Post("/orders/{orderId}/assign", sellcontrollers.AdminOrderAssign(svc.Orders, logg))
			r.Post("/orders/{orderId}/complete", sellcontrollers.AdminOrderComplete(svc.Orders, logg))
		})
	})

	return r
}
