package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopora-backend/pkg/config"
	"github.com/angelmondragon/shopora-backend/pkg/db/models"
	"github.com/angelmondragon/shopora-backend/pkg/instance"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
	"github.com/angelmondragon/shopora-backend/pkg/metrics"
	"github.com/angelmondragon/shopora-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type brokerClient interface {
	Ping(context.Context) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisherFactory func(topic string) publisher

// publisher is satisfied by *kafkago.Writer.
type publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	Broker           brokerClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	Metrics          *metrics.OutboxMetrics
}

// Service relays committed outbox rows to Kafka. Delivery is at least once:
// a row is marked published only after the broker acknowledged it, inside the
// same transaction that locked it.
type Service struct {
	logg             *logger.Logger
	db               dbClient
	repo             outboxRepository
	broker           brokerClient
	registry         registryResolver
	publisherFactory publisherFactory
	metrics          *metrics.OutboxMetrics
	producer         string
	batchSize        int
	maxAttempts      int
	pollInterval     time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	required := []struct {
		missing bool
		name    string
	}{
		{params.Config == nil, "config"},
		{params.Logger == nil, "logger"},
		{params.DB == nil, "database client"},
		{params.Broker == nil, "kafka client"},
		{params.Repository == nil, "outbox repository"},
		{params.Registry == nil, "event registry"},
		{params.PublisherFactory == nil, "publisher factory"},
	}
	for _, dep := range required {
		if dep.missing {
			return nil, fmt.Errorf("%s is required", dep.name)
		}
	}

	cfg := params.Config.Outbox
	s := &Service{
		logg:             params.Logger,
		db:               params.DB,
		repo:             params.Repository,
		broker:           params.Broker,
		registry:         params.Registry,
		publisherFactory: params.PublisherFactory,
		metrics:          params.Metrics,
		producer:         instance.ID(),
		batchSize:        cfg.BatchSize,
		maxAttempts:      cfg.MaxAttempts,
		pollInterval:     time.Duration(cfg.PollIntervalMS) * time.Millisecond,
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultMaxAttempts
	}
	if s.pollInterval <= 0 {
		s.pollInterval = defaultPollInterval
	}
	return s, nil
}

// Run polls until ctx is cancelled. Full batches are followed immediately by
// the next one; an empty table waits one poll interval and a failing batch
// backs off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{"database": s.db.Ping, "kafka": s.broker.Ping} {
		if err := ping(ctx); err != nil {
			s.logg.Error(ctx, name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	backoff := s.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		processed, err := s.processBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			wait = withJitter(backoff)
		case processed:
			backoff = s.pollInterval
			continue
		default:
			backoff = s.pollInterval
			wait = withJitter(s.pollInterval)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeTerminal
)

// processBatch publishes one batch inside a transaction. A publish failure marks the
// row and moves on; only bookkeeping failures abort the batch.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveBatch(time.Since(started)) }()

	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize)
		if err != nil || len(events) == 0 {
			return err
		}
		processed = true
		for _, event := range events {
			result, fields, pubErr := s.dispatch(ctx, event)
			if err := s.settle(ctx, tx, event, result, fields, pubErr); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

// dispatch resolves and publishes a single row and classifies the result.
func (s *Service) dispatch(ctx context.Context, event models.OutboxEvent) (outcome, map[string]any, error) {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		fields["terminal_reason"] = "non_retryable"
		return outcomeTerminal, fields, err
	}
	fields["event_id"] = resolved.Envelope.EventID
	fields["topic"] = resolved.Descriptor.Topic

	pub := s.publisherFactory(resolved.Descriptor.Topic)
	if pub == nil {
		fields["terminal_reason"] = "non_retryable"
		return outcomeTerminal, fields, fmt.Errorf("publisher not configured for topic %s", resolved.Descriptor.Topic)
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	err = pub.WriteMessages(publishCtx, s.message(event, resolved))

	var nonRetry registry.NonRetryableError
	attempt := event.AttemptCount + 1
	switch {
	case err == nil:
		return outcomePublished, fields, nil
	case errors.As(err, &nonRetry):
		fields["terminal_reason"] = "non_retryable"
		return outcomeTerminal, fields, err
	case attempt >= s.maxAttempts:
		fields["terminal_reason"] = "max_attempts"
		fields["attempt_count"] = attempt
		return outcomeTerminal, fields, fmt.Errorf("max publish attempts reached: %w", err)
	default:
		fields["attempt_count"] = attempt
		return outcomeRetry, fields, err
	}
}

// settle records the outcome on the row and in metrics.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, result outcome, fields map[string]any, pubErr error) error {
	logCtx := s.logg.WithFields(ctx, fields)
	eventType := string(event.EventType)

	switch result {
	case outcomePublished:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.metrics.IncPublished(eventType)
		s.logg.Info(logCtx, "outbox event published")
	case outcomeRetry:
		s.logg.Warn(s.logg.WithField(logCtx, "error", pubErr.Error()), "outbox publish failed")
		if err := s.repo.MarkFailedTx(tx, event.ID, pubErr); err != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, err)
		}
		s.metrics.IncFailed(eventType)
	case outcomeTerminal:
		s.logg.Warn(s.logg.WithField(logCtx, "error", pubErr.Error()), "outbox event will not be retried")
		if err := s.repo.MarkTerminalTx(tx, event.ID, pubErr); err != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, err)
		}
		s.metrics.IncTerminal(eventType)
	}
	return nil
}

// message keys by aggregate so every event for one order lands on the same
// partition in commit order. The stored payload is forwarded untouched.
func (s *Service) message(event models.OutboxEvent, resolved *registry.ResolvedEvent) kafkago.Message {
	return kafkago.Message{
		Key:   []byte(event.AggregateID.String()),
		Value: event.Payload,
		Headers: []kafkago.Header{
			{Key: "event_id", Value: []byte(resolved.Envelope.EventID)},
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_version", Value: []byte(strconv.Itoa(resolved.Envelope.Version))},
			{Key: "aggregate_type", Value: []byte(event.AggregateType)},
			{Key: "created_at", Value: []byte(event.CreatedAt.Format(time.RFC3339Nano))},
			{Key: "producer", Value: []byte(s.producer)},
		},
	}
}

func sleep(ctx context.Context, d time.Duration) error {
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

func nextBackoff(current, base, ceiling time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	return min(current*2, ceiling)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
