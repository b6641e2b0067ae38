package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopora-backend/pkg/config"
	"github.com/angelmondragon/shopora-backend/pkg/db/models"
	"github.com/angelmondragon/shopora-backend/pkg/enums"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
	"github.com/angelmondragon/shopora-backend/pkg/metrics"
	"github.com/angelmondragon/shopora-backend/pkg/outbox"
	"github.com/angelmondragon/shopora-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/shopora-backend/pkg/outbox/registry"
)

// memoryOutbox serves a fixed batch and records how each row was settled.
type memoryOutbox struct {
	rows      []models.OutboxEvent
	fetchErr  error
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (m *memoryOutbox) FetchUnpublishedForPublish(*gorm.DB, int) ([]models.OutboxEvent, error) {
	return m.rows, m.fetchErr
}

func (m *memoryOutbox) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	m.published = append(m.published, id)
	return nil
}

func (m *memoryOutbox) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	m.failed = append(m.failed, id)
	return nil
}

func (m *memoryOutbox) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	m.terminal = append(m.terminal, id)
	return nil
}

type noopDB struct{}

func (noopDB) Ping(context.Context) error { return nil }

func (noopDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type noopBroker struct{}

func (noopBroker) Ping(context.Context) error { return nil }

// scriptedWriter fails with each queued error in turn, then succeeds.
type scriptedWriter struct {
	failures []error
	sent     []kafkago.Message
}

func (s *scriptedWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		if err != nil {
			return err
		}
	}
	s.sent = append(s.sent, msgs...)
	return nil
}

type staticResolver struct {
	topic string
	err   error
}

func (s staticResolver) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{EventType: event.EventType, AggregateType: event.AggregateType, Topic: s.topic},
		Envelope:   outbox.PayloadEnvelope{Version: 1, EventID: event.ID.String(), OccurredAt: event.CreatedAt},
		Payload:    &payloads.OrderCreatedEvent{OrderID: event.AggregateID},
	}, nil
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, reg registryResolver, outboxCfg config.OutboxConfig) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Config:           &config.Config{Outbox: outboxCfg},
		Logger:           logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:               noopDB{},
		Broker:           noopBroker{},
		Repository:       repo,
		Registry:         reg,
		PublisherFactory: func(string) publisher { return pub },
	})
	require.NoError(t, err)
	return service
}

var defaultTestOutbox = config.OutboxConfig{BatchSize: 2, PollIntervalMS: 100, MaxAttempts: 5}

func pendingOrderRow(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
		AttemptCount:  attempts,
		CreatedAt:     time.Now().UTC(),
	}
}

func headerValue(msg kafkago.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.ErrorContains(t, err, "config is required")

	svc := newTestService(t, &memoryOutbox{}, &scriptedWriter{}, staticResolver{}, config.OutboxConfig{})
	assert.Equal(t, defaultBatchSize, svc.batchSize)
	assert.Equal(t, defaultMaxAttempts, svc.maxAttempts)
	assert.Equal(t, defaultPollInterval, svc.pollInterval)
}

func TestProcessBatchContinuesPastFailedRow(t *testing.T) {
	first, second := pendingOrderRow(t, 0), pendingOrderRow(t, 0)
	repo := &memoryOutbox{rows: []models.OutboxEvent{first, second}}
	writer := &scriptedWriter{failures: []error{errors.New("broker unavailable")}}
	svc := newTestService(t, repo, writer, staticResolver{topic: "orders"}, defaultTestOutbox)

	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, []uuid.UUID{first.ID}, repo.failed)
	assert.Equal(t, []uuid.UUID{second.ID}, repo.published)
	assert.Empty(t, repo.terminal)
}

func TestProcessBatchMessageShape(t *testing.T) {
	row := pendingOrderRow(t, 0)
	writer := &scriptedWriter{}
	svc := newTestService(t, &memoryOutbox{rows: []models.OutboxEvent{row}}, writer, staticResolver{topic: "orders"}, defaultTestOutbox)

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, writer.sent, 1)

	msg := writer.sent[0]
	assert.Equal(t, row.AggregateID.String(), string(msg.Key), "keyed by aggregate")
	assert.JSONEq(t, string(row.Payload), string(msg.Value), "payload forwarded unchanged")
	assert.Equal(t, string(enums.EventOrderCreated), headerValue(msg, "event_type"))
	assert.Equal(t, row.ID.String(), headerValue(msg, "event_id"))
	assert.Equal(t, "1", headerValue(msg, "event_version"))
	assert.Equal(t, svc.producer, headerValue(msg, "producer"))
}

func TestProcessBatchTerminalOutcomes(t *testing.T) {
	cases := map[string]struct {
		attempts int
		resolver staticResolver
		writer   publisher
		cfg      config.OutboxConfig
	}{
		"non-retryable row": {
			resolver: staticResolver{err: registry.NewNonRetryableError(errors.New("invalid payload"))},
			writer:   &scriptedWriter{},
			cfg:      defaultTestOutbox,
		},
		"non-retryable broker error": {
			resolver: staticResolver{topic: "orders"},
			writer:   &scriptedWriter{failures: []error{registry.NewNonRetryableError(errors.New("message too large"))}},
			cfg:      defaultTestOutbox,
		},
		"attempts exhausted": {
			attempts: 1,
			resolver: staticResolver{topic: "orders"},
			writer:   &scriptedWriter{failures: []error{errors.New("transient")}},
			cfg:      config.OutboxConfig{BatchSize: 1, PollIntervalMS: 100, MaxAttempts: 2},
		},
		"no writer for topic": {
			resolver: staticResolver{topic: "orders"},
			writer:   nil,
			cfg:      defaultTestOutbox,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			row := pendingOrderRow(t, tc.attempts)
			repo := &memoryOutbox{rows: []models.OutboxEvent{row}}
			svc := newTestService(t, repo, tc.writer, tc.resolver, tc.cfg)
			reg := prometheus.NewRegistry()
			svc.metrics = metrics.NewOutboxMetrics(reg)

			processed, err := svc.processBatch(context.Background())
			require.NoError(t, err)
			assert.True(t, processed)
			assert.Equal(t, []uuid.UUID{row.ID}, repo.terminal)
			assert.Empty(t, repo.failed, "terminal rows are not also marked failed")
			assert.Empty(t, repo.published)

			series, err := testutil.GatherAndCount(reg, "outbox_terminal_total")
			require.NoError(t, err)
			assert.Equal(t, 1, series)
		})
	}
}

func TestProcessBatchEmptyAndFetchError(t *testing.T) {
	svc := newTestService(t, &memoryOutbox{}, &scriptedWriter{}, staticResolver{}, defaultTestOutbox)
	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)

	svc = newTestService(t, &memoryOutbox{fetchErr: errors.New("db down")}, &scriptedWriter{}, staticResolver{}, defaultTestOutbox)
	processed, err = svc.processBatch(context.Background())
	assert.Error(t, err)
	assert.False(t, processed)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	svc := newTestService(t, &memoryOutbox{}, &scriptedWriter{}, staticResolver{}, defaultTestOutbox)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.Run(ctx), context.Canceled)
}

func TestBackoffAndJitter(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(0, time.Second, 10*time.Second))
	assert.Equal(t, 8*time.Second, nextBackoff(4*time.Second, time.Second, 10*time.Second))
	assert.Equal(t, 10*time.Second, nextBackoff(8*time.Second, time.Second, 10*time.Second))

	for range 20 {
		d := withJitter(time.Second)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, time.Second+jitterWindow)
	}
	assert.Zero(t, withJitter(0))
}
