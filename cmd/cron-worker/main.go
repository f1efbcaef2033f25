package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/resellr-backend/internal/bootstrap"
	"github.com/angelmondragon/resellr-backend/internal/cron"
	"github.com/angelmondragon/resellr-backend/pkg/metrics"
)

const lockKeyFormat = "resellr:cron-worker:lock:%s"

func main() {
	once := flag.Bool("once", false, "run one locked cycle and exit")
	only := flag.String("job", "", "comma separated job names for -once (default all)")
	flag.Parse()

	rt := bootstrap.Start("cron-worker")
	defer rt.Close()
	cfg, logg := rt.Config, rt.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = rt.Context(ctx)

	dbClient := rt.Database(ctx)
	redisClient := rt.Redis(ctx)
	sell, err := bootstrap.NewSellServices(bootstrap.Params{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		Registry: prometheus.DefaultRegisterer,
	})
	rt.Must(ctx, "wire sell services", err)

	sessionJob, err := cron.NewSessionCleanupJob(cron.SessionCleanupJobParams{
		Logger:   logg,
		Sessions: sell.Sessions,
	})
	rt.Must(ctx, "create session cleanup job", err)
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:       logg,
		Events:       sell.Outbox,
		DeadLetters:  sell.DeadLetters,
		Retention:    cfg.Outbox.RetentionDays,
		DLQRetention: cfg.Outbox.DLQRetention,
	})
	rt.Must(ctx, "create outbox retention job", err)

	registry, err := cron.NewRegistry(sessionJob, retentionJob)
	rt.Must(ctx, "register cron jobs", err)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	rt.Must(ctx, "create cron lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	rt.Must(ctx, "create cron service", err)

	if *once {
		logg.Info(ctx, "running cron jobs once")
		rt.Must(ctx, "run cron jobs", service.RunOnce(ctx, jobNames(*only)...))
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		rt.Must(ctx, "keep cron worker running", err)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func jobNames(raw string) []string {
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
