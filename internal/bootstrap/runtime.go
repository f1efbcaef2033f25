package bootstrap

import (
	"context"
	"io"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/resellr-backend/pkg/config"
	"github.com/angelmondragon/resellr-backend/pkg/db"
	"github.com/angelmondragon/resellr-backend/pkg/logger"
	"github.com/angelmondragon/resellr-backend/pkg/migrate"
	"github.com/angelmondragon/resellr-backend/pkg/redis"
)

// Runtime is the process state every binary starts from. Connections opened
// through it are closed by Close in reverse order.
type Runtime struct {
	Config *config.Config
	Logger *logger.Logger

	closers []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

// Start loads .env and the environment config, then builds the service logger.
// It exits the process when the config is unusable.
func Start(service string) *Runtime {
	logg := logger.New(logger.Options{ServiceName: service})
	if err := godotenv.Load(); err != nil {
		logg.Debug(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = service

	return &Runtime{Config: cfg, Logger: logger.ForService(service, cfg.App)}
}

// Context carries the fields every log line of the process should have.
func (rt *Runtime) Context(ctx context.Context) context.Context {
	return rt.Logger.WithFields(ctx, map[string]any{
		"env":         rt.Config.App.Env,
		"serviceKind": rt.Config.Service.Kind,
	})
}

// Database connects to Postgres and applies dev migrations when enabled.
func (rt *Runtime) Database(ctx context.Context) *db.Client {
	client, err := db.New(ctx, rt.Config.DB, rt.Logger)
	rt.Must(ctx, "bootstrap database", err)
	rt.closers = append(rt.closers, namedCloser{"database", client})

	rt.Must(ctx, "run dev migrations", migrate.MaybeRunDev(ctx, rt.Config, rt.Logger, client))
	return client
}

func (rt *Runtime) Redis(ctx context.Context) *redis.Client {
	client, err := redis.New(ctx, rt.Config.Redis, rt.Logger)
	rt.Must(ctx, "bootstrap redis", err)
	rt.closers = append(rt.closers, namedCloser{"redis", client})
	return client
}

// Track registers another connection for Close.
func (rt *Runtime) Track(name string, c io.Closer) {
	rt.closers = append(rt.closers, namedCloser{name, c})
}

// Must logs err and exits. Tracked connections are closed first.
func (rt *Runtime) Must(ctx context.Context, step string, err error) {
	if err == nil {
		return
	}
	rt.Logger.Error(ctx, "failed to "+step, err)
	_ = rt.Close()
	os.Exit(1)
}

// Close closes every tracked connection and reports all failures.
func (rt *Runtime) Close() error {
	var errs error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].c.Close(); err != nil {
			errs = multierr.Append(errs, err)
			rt.Logger.Error(rt.Logger.WithField(context.Background(), "resource", rt.closers[i].name), "close failed", err)
		}
	}
	rt.closers = nil
	return errs
}
