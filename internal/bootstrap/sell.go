// Package bootstrap wires the sell services from their infrastructure
// clients so every binary builds them the same way.
package bootstrap

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/resellr-backend/internal/catalog"
	"github.com/angelmondragon/resellr-backend/internal/pickup"
	"github.com/angelmondragon/resellr-backend/internal/sellconfig"
	"github.com/angelmondragon/resellr-backend/internal/sellorders"
	"github.com/angelmondragon/resellr-backend/internal/sessions"
	"github.com/angelmondragon/resellr-backend/pkg/config"
	"github.com/angelmondragon/resellr-backend/pkg/db"
	"github.com/angelmondragon/resellr-backend/pkg/logger"
	"github.com/angelmondragon/resellr-backend/pkg/metrics"
	"github.com/angelmondragon/resellr-backend/pkg/outbox"
	"github.com/angelmondragon/resellr-backend/pkg/redis"
	"github.com/angelmondragon/resellr-backend/pkg/security"
)

// SellServices holds the fully wired sell domain.
type SellServices struct {
	Catalog     catalog.Service
	SellConfig  sellconfig.Service
	Sessions    sessions.Service
	Orders      sellorders.Service
	Pickup      *pickup.Service
	Outbox      *outbox.Repository
	DeadLetters *outbox.DLQRepository
}

// Params are the shared clients the sell services run on.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Redis    *redis.Client
	Registry prometheus.Registerer
}

func NewSellServices(p Params) (*SellServices, error) {
	switch {
	case p.Config == nil:
		return nil, fmt.Errorf("config required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case p.DB == nil:
		return nil, fmt.Errorf("database client required")
	case p.Redis == nil:
		return nil, fmt.Errorf("redis client required")
	}
	gdb := p.DB.DB()
	sellMetrics := metrics.NewSellMetrics(p.Registry)

	catalogRepo := catalog.NewRepository(gdb)
	catalogSvc, err := catalog.NewService(catalogRepo)
	if err != nil {
		return nil, fmt.Errorf("catalog service: %w", err)
	}
	resolver, err := catalog.NewResolver(catalogRepo, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("selection resolver: %w", err)
	}
	configSvc, err := sellconfig.NewService(sellconfig.NewRepository(gdb))
	if err != nil {
		return nil, fmt.Errorf("sell config service: %w", err)
	}
	hasher, err := security.NewTokenHasher(p.Config.Sell.SessionSecret)
	if err != nil {
		return nil, fmt.Errorf("session token hasher: %w", err)
	}

	sessionRepo := sessions.NewRepository(gdb)
	sessionSvc, err := sessions.NewService(sessions.Deps{
		Repo:     sessionRepo,
		Pricer:   catalogSvc,
		Resolver: resolver,
		Rules:    configSvc,
		Lookup:   catalogRepo,
		Tokens:   hasher,
		Metrics:  sellMetrics,
		Logger:   p.Logger,
		TTL:      p.Config.Sell.SessionTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("session service: %w", err)
	}

	numbers, err := sellorders.NewNumberGenerator(p.Redis, p.Config.Sell.OrderPrefix)
	if err != nil {
		return nil, fmt.Errorf("order numbers: %w", err)
	}
	outboxRepo := outbox.NewRepository(gdb)
	orderSvc, err := sellorders.NewService(sellorders.Deps{
		Tx:            p.DB,
		Repo:          sellorders.NewRepository(gdb),
		SessionRepo:   sessionRepo,
		Sessions:      sessionSvc,
		Variants:      catalogRepo,
		Numbers:       numbers,
		Outbox:        outbox.NewService(outboxRepo, p.Logger),
		Metrics:       sellMetrics,
		Logger:        p.Logger,
		ProcessingFee: p.Config.Sell.ProcessingFee,
	})
	if err != nil {
		return nil, fmt.Errorf("sell order service: %w", err)
	}

	pickupSvc, err := pickup.NewService(p.Redis, orderSvc, p.Config.Pickup, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("pickup service: %w", err)
	}

	return &SellServices{
		Catalog:     catalogSvc,
		SellConfig:  configSvc,
		Sessions:    sessionSvc,
		Orders:      orderSvc,
		Pickup:      pickupSvc,
		Outbox:      outboxRepo,
		DeadLetters: outbox.NewDLQRepository(gdb),
	}, nil
}
