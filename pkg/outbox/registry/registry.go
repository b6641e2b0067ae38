// Package registry maps outbox event types to their Kafka topic and payload
// schema, and decodes stored rows before they are relayed.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopora-backend/pkg/config"
	"github.com/angelmondragon/shopora-backend/pkg/db/models"
	"github.com/angelmondragon/shopora-backend/pkg/enums"
	"github.com/angelmondragon/shopora-backend/pkg/outbox"
	"github.com/angelmondragon/shopora-backend/pkg/outbox/payloads"
)

var errNoOrdersTopic = errors.New("orders topic is required")

type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is a stored row after its envelope and payload decoded.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that will fail the same way on every attempt.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func orderEvent[T any](eventType enums.OutboxEventType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:      eventType,
		AggregateType:  enums.AggregateOrder,
		Topic:          topic,
		PayloadFactory: func() any { return new(T) },
	}
}

// NewEventRegistry registers every order lifecycle event on the orders topic.
func NewEventRegistry(cfg config.KafkaConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errNoOrdersTopic
	}
	descriptors := []EventDescriptor{
		orderEvent[payloads.OrderCreatedEvent](enums.EventOrderCreated, cfg.OrdersTopic),
		orderEvent[payloads.OrderPaidEvent](enums.EventOrderPaid, cfg.OrdersTopic),
		orderEvent[payloads.OrderDeliveredEvent](enums.EventOrderDelivered, cfg.OrdersTopic),
		orderEvent[payloads.OrderCancelledEvent](enums.EventOrderCancelled, cfg.OrdersTopic),
		orderEvent[payloads.OrderStatusChangedEvent](enums.EventOrderStatus, cfg.OrdersTopic),
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, d := range descriptors {
		reg.entries[d.EventType] = d
	}
	return reg, nil
}

// Topics lists the distinct topics the registry publishes to.
func (r *EventRegistry) Topics() []string {
	seen := make(map[string]struct{}, len(r.entries))
	var topics []string
	for _, d := range r.entries {
		if _, ok := seen[d.Topic]; !ok {
			seen[d.Topic] = struct{}{}
			topics = append(topics, d.Topic)
		}
	}
	return topics
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure here is non-retryable: the row will not change.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, err := r.descriptorFor(event)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	envelope, err := outbox.OpenEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

func (r *EventRegistry) descriptorFor(event models.OutboxEvent) (EventDescriptor, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return EventDescriptor{}, fmt.Errorf("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return EventDescriptor{}, fmt.Errorf("%s belongs to %s aggregates, row has %s", event.EventType, desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return EventDescriptor{}, fmt.Errorf("%s row has no aggregate id", event.EventType)
	}
	return desc, nil
}
