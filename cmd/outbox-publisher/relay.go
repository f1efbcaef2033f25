package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/resellr-backend/pkg/config"
	"github.com/angelmondragon/resellr-backend/pkg/db/models"
	"github.com/angelmondragon/resellr-backend/pkg/enums"
	"github.com/angelmondragon/resellr-backend/pkg/logger"
	"github.com/angelmondragon/resellr-backend/pkg/metrics"
	"github.com/angelmondragon/resellr-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultMaxAttempts = 10
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
	Metrics          *metrics.OutboxMetrics
	Now              func() time.Time
}

// Service relays committed sell order events from the outbox table to Pub/Sub.
type Service struct {
	logg             *logger.Logger
	db               dbClient
	repo             outboxRepository
	pubsub           pubSubClient
	registry         registryResolver
	dlq              dlqRepository
	publisherFactory publisherFactory
	metrics          *metrics.OutboxMetrics
	now              func() time.Time
	batchSize        int
	maxAttempts      int
	pollInterval     time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = gcpPublisherFactory(params.PubSub)
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	cfg := params.Config.Outbox

	return &Service{
		logg:             params.Logger,
		db:               params.DB,
		repo:             params.Repository,
		pubsub:           params.PubSub,
		registry:         params.Registry,
		dlq:              params.DLQRepository,
		publisherFactory: factory,
		metrics:          params.Metrics,
		now:              now,
		batchSize:        positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts:      positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval:     time.Duration(positiveOr(cfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
	}, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Run polls until ctx is canceled. An empty batch waits one poll interval.
// A failed batch backs off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	deps := []struct {
		name string
		ping func(context.Context) error
	}{{"database", s.db.Ping}, {"pubsub", s.pubsub.Ping}}
	for _, dep := range deps {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(ctx, dep.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}

	wait := s.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		stats, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.metrics.IncBatchFailed()
			s.logg.Error(ctx, "outbox publisher batch error", err)
			wait = nextBackoff(wait, s.pollInterval, maxBackoff)
		case stats.total() > 0:
			s.logg.Debug(s.logg.WithFields(ctx, stats.fields()), "outbox batch settled")
			wait = s.pollInterval
			continue
		default:
			wait = s.pollInterval
		}

		if err := sleepCtx(ctx, withJitter(wait)); err != nil {
			return err
		}
	}
}

type batchStats struct {
	published    int
	retried      int
	deadLettered int
}

func (b batchStats) total() int { return b.published + b.retried + b.deadLettered }

func (b batchStats) fields() map[string]any {
	return map[string]any{
		"published":     b.published,
		"retried":       b.retried,
		"dead_lettered": b.deadLettered,
	}
}

// processBatch locks a batch of rows and settles each one inside the same
// transaction. A settle failure rolls the whole batch back.
func (s *Service) processBatch(ctx context.Context) (batchStats, error) {
	var stats batchStats
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		stats = batchStats{}
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		for _, event := range events {
			d := s.deliver(ctx, event)
			if err := s.settle(ctx, tx, d); err != nil {
				return err
			}
			switch d.outcome {
			case metrics.OutboxOutcomePublished:
				stats.published++
			case metrics.OutboxOutcomeRetried:
				stats.retried++
			default:
				stats.deadLettered++
			}
		}
		return nil
	})
	return stats, err
}

// delivery is the result of one publish attempt.
type delivery struct {
	event    models.OutboxEvent
	topic    string
	eventID  string
	outcome  string
	reason   enums.OutboxDLQErrorReason
	err      error
	attempts int
}

func (s *Service) deliver(ctx context.Context, event models.OutboxEvent) delivery {
	d := delivery{event: event, attempts: event.AttemptCount}

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		d.outcome, d.reason, d.err = metrics.OutboxOutcomeDeadLettered, enums.OutboxDLQReasonNonRetryable, err
		return d
	}
	d.topic = resolved.Descriptor.Topic
	d.eventID = resolved.Envelope.EventID

	err = publishEvent(ctx, s.publisherFactory(d.topic), event, resolved)
	if err == nil {
		d.outcome = metrics.OutboxOutcomePublished
		return d
	}

	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		d.outcome, d.reason, d.err = metrics.OutboxOutcomeDeadLettered, enums.OutboxDLQReasonNonRetryable, err
		return d
	}
	d.attempts = event.AttemptCount + 1
	if d.attempts >= s.maxAttempts {
		d.outcome, d.reason = metrics.OutboxOutcomeDeadLettered, enums.OutboxDLQReasonMaxAttempts
		d.err = fmt.Errorf("max publish attempts reached: %w", err)
		return d
	}
	d.outcome, d.err = metrics.OutboxOutcomeRetried, err
	return d
}

func (s *Service) settle(ctx context.Context, tx *gorm.DB, d delivery) error {
	id := d.event.ID
	lctx := s.logg.WithFields(ctx, d.fields())
	s.metrics.ObserveDelivery(string(d.event.EventType), d.outcome)

	switch d.outcome {
	case metrics.OutboxOutcomePublished:
		if err := s.repo.MarkPublishedTx(tx, id); err != nil {
			return fmt.Errorf("mark published %s: %w", id, err)
		}
		s.logg.Info(lctx, "outbox event published")
		return nil

	case metrics.OutboxOutcomeRetried:
		s.logg.Warn(s.logg.WithField(lctx, "error", d.err.Error()), "outbox publish failed")
		if err := s.repo.MarkFailedTx(tx, id, d.err); err != nil {
			return fmt.Errorf("mark failure %s: %w", id, err)
		}
		return nil
	}

	s.logg.Warn(s.logg.WithField(lctx, "error", d.err.Error()), "outbox event will not be retried")
	msg := d.err.Error()
	entry := models.OutboxDLQ{
		EventID:       id,
		EventType:     d.event.EventType,
		AggregateType: d.event.AggregateType,
		AggregateID:   d.event.AggregateID,
		Payload:       d.event.Payload,
		ErrorReason:   d.reason,
		ErrorMessage:  &msg,
		AttemptCount:  d.event.AttemptCount,
		FailedAt:      s.now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", id, err)
	}
	if err := s.repo.MarkTerminalTx(tx, id, d.err, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", id, err)
	}
	return nil
}

func (d delivery) fields() map[string]any {
	f := map[string]any{
		"outbox_id":     d.event.ID.String(),
		"event_type":    d.event.EventType,
		"aggregate_id":  d.event.AggregateID.String(),
		"attempt_count": d.attempts,
		"outcome":       d.outcome,
	}
	if d.topic != "" {
		f["topic"] = d.topic
	}
	if d.eventID != "" {
		f["event_id"] = d.eventID
	}
	if d.reason != "" {
		f["error_reason"] = d.reason
	}
	return f
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, limit time.Duration) time.Duration {
	if current < base {
		current = base
	}
	return min(current*2, limit)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
