package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/resellr-backend/api/controllers"
	"github.com/angelmondragon/resellr-backend/api/responses"
	"github.com/angelmondragon/resellr-backend/api/routes"
	"github.com/angelmondragon/resellr-backend/internal/bootstrap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	rt := bootstrap.Start("api")
	defer rt.Close()
	cfg, logg := rt.Config, rt.Logger
	responses.ExposeDebug(!cfg.App.IsProd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	instance := os.Getenv("DYNO")
	if instance == "" {
		instance = "local"
	}
	ctx = logg.WithFields(rt.Context(ctx), map[string]any{"addr": ":" + port, "instance": instance})

	dbClient := rt.Database(ctx)
	redisClient := rt.Redis(ctx)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	sell, err := bootstrap.NewSellServices(bootstrap.Params{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		Registry: registry,
	})
	rt.Must(ctx, "wire sell services", err)

	server := &http.Server{
		Addr: ":" + port,
		Handler: routes.NewRouter(
			cfg,
			logg,
			map[string]controllers.Pinger{"db": dbClient, "redis": redisClient},
			redisClient,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			routes.Services{
				Catalog:    sell.Catalog,
				Sessions:   sell.Sessions,
				SellConfig: sell.SellConfig,
				Orders:     sell.Orders,
				Pickup:     sell.Pickup,
			},
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			rt.Must(ctx, "serve api", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server stopped")
	}
}
