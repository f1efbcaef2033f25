package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/resellr-backend/pkg/logger"
)

type SessionCleanupJobParams struct {
	Logger   *logger.Logger
	Sessions sessionCleaner
}

type sessionCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// NewSessionCleanupJob removes offer sessions whose TTL has passed.
func NewSessionCleanupJob(params SessionCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session service required")
	}
	return &sessionCleanupJob{logg: params.Logger, sessions: params.Sessions}, nil
}

type sessionCleanupJob struct {
	logg     *logger.Logger
	sessions sessionCleaner
}

func (j *sessionCleanupJob) Name() string { return "sell-session-cleanup" }

func (j *sessionCleanupJob) Run(ctx context.Context) error {
	deleted, err := j.sessions.CleanupExpired(ctx)
	if err != nil {
		return fmt.Errorf("sell session cleanup: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "rows_deleted", deleted), "sell session cleanup complete")
	return nil
}
