package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/resellr-backend/internal/bootstrap"
	"github.com/angelmondragon/resellr-backend/pkg/metrics"
	"github.com/angelmondragon/resellr-backend/pkg/outbox"
	"github.com/angelmondragon/resellr-backend/pkg/outbox/registry"
	"github.com/angelmondragon/resellr-backend/pkg/pubsub"
)

func main() {
	rt := bootstrap.Start("outbox-publisher")
	defer rt.Close()
	cfg, logg := rt.Config, rt.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = rt.Context(ctx)

	dbClient := rt.Database(ctx)
	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	rt.Must(ctx, "bootstrap pubsub", err)
	rt.Track("pubsub", pubsubClient)

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	rt.Must(ctx, "build event registry", err)

	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	rt.Must(ctx, "create outbox publisher", err)

	logg.Info(ctx, "starting outbox publisher")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Must(ctx, "keep outbox publisher running", err)
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
}
