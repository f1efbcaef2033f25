package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/resellr-backend/pkg/logger"
)

const (
	outboxRetentionDays = 30
	dlqRetentionDays    = 90
)

type publishedPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type deadLetterPruner interface {
	DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// OutboxRetentionJobParams configures pruning of delivered events and, when
// DeadLetters is set, of old dead letters.
type OutboxRetentionJobParams struct {
	Logger       *logger.Logger
	Events       publishedPruner
	DeadLetters  deadLetterPruner
	Retention    int
	DLQRetention int
}

type outboxRetentionJob struct {
	logg         *logger.Logger
	events       publishedPruner
	deadLetters  deadLetterPruner
	retention    time.Duration
	dlqRetention time.Duration
	now          func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	return &outboxRetentionJob{
		logg:         params.Logger,
		events:       params.Events,
		deadLetters:  params.DeadLetters,
		retention:    days(params.Retention, outboxRetentionDays),
		dlqRetention: days(params.DLQRetention, dlqRetentionDays),
		now:          time.Now,
	}, nil
}

func days(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * 24 * time.Hour
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run prunes both tables even if the first delete fails.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	fields := map[string]any{}

	published, errs := j.events.DeletePublishedBefore(ctx, now.Add(-j.retention))
	if errs != nil {
		errs = fmt.Errorf("prune published events: %w", errs)
	}
	fields["published_deleted"] = published

	if j.deadLetters != nil {
		dead, err := j.deadLetters.DeleteFailedBefore(ctx, now.Add(-j.dlqRetention))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("prune dead letters: %w", err))
		}
		fields["dead_letters_deleted"] = dead
	}
	if errs != nil {
		return errs
	}

	j.logg.Info(j.logg.WithFields(ctx, fields), "outbox retention cleanup complete")
	return nil
}
