package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopora-backend/pkg/config"
	"github.com/angelmondragon/shopora-backend/pkg/db/models"
	"github.com/angelmondragon/shopora-backend/pkg/enums"
	"github.com/angelmondragon/shopora-backend/pkg/outbox"
	"github.com/angelmondragon/shopora-backend/pkg/outbox/payloads"
)

func newRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.KafkaConfig{OrdersTopic: "orders-topic"})
	require.NoError(t, err)
	return reg
}

func envelopeFor(t *testing.T, data string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(data),
	})
	require.NoError(t, err)
	return raw
}

func TestResolveDecodesTypedPayload(t *testing.T) {
	reg := newRegistry(t)
	orderID := uuid.New()
	data, err := json.Marshal(payloads.OrderCreatedEvent{
		OrderID:    orderID,
		UserID:     uuid.New(),
		ItemCount:  3,
		TotalPrice: decimal.RequireFromString("99.00"),
	})
	require.NoError(t, err)

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       envelopeFor(t, string(data)),
	})
	require.NoError(t, err)

	assert.Equal(t, "orders-topic", resolved.Descriptor.Topic)
	assert.NotEmpty(t, resolved.Envelope.EventID)
	assert.False(t, resolved.Envelope.OccurredAt.IsZero())
	payload, ok := resolved.Payload.(*payloads.OrderCreatedEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	assert.Equal(t, orderID, payload.OrderID)
	assert.Equal(t, 3, payload.ItemCount)
	assert.True(t, payload.TotalPrice.Equal(decimal.NewFromInt(99)))
}

func TestRegistryCoversOrderLifecycle(t *testing.T) {
	reg := newRegistry(t)
	want := map[enums.OutboxEventType]any{
		enums.EventOrderCreated:   &payloads.OrderCreatedEvent{},
		enums.EventOrderPaid:      &payloads.OrderPaidEvent{},
		enums.EventOrderDelivered: &payloads.OrderDeliveredEvent{},
		enums.EventOrderCancelled: &payloads.OrderCancelledEvent{},
		enums.EventOrderStatus:    &payloads.OrderStatusChangedEvent{},
	}
	require.Len(t, reg.entries, len(want))
	for eventType, payload := range want {
		desc, ok := reg.entries[eventType]
		require.True(t, ok, eventType)
		assert.Equal(t, "orders-topic", desc.Topic)
		assert.Equal(t, enums.AggregateOrder, desc.AggregateType)
		assert.IsType(t, payload, desc.PayloadFactory())
	}
	assert.Equal(t, []string{"orders-topic"}, reg.Topics())
}

func TestResolveRejectsBadRows(t *testing.T) {
	reg := newRegistry(t)
	cases := map[string]models.OutboxEvent{
		"unknown type": {
			EventType:     "order.refunded",
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, `{"reason":"none"}`),
		},
		"aggregate mismatch": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateProduct,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, `{}`),
		},
		"no aggregate id": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			Payload:       envelopeFor(t, `{}`),
		},
		"null data": {
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, `null`),
		},
		"wrong payload shape": {
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       envelopeFor(t, `{"order_id":42}`),
		},
		"not an envelope": {
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`[1,2]`),
		},
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			var nonRetry NonRetryableError
			assert.ErrorAs(t, err, &nonRetry)
		})
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry(config.KafkaConfig{})
	assert.ErrorIs(t, err, errNoOrdersTopic)
}

func TestNonRetryableErrorUnwraps(t *testing.T) {
	cause := assert.AnError
	err := NewNonRetryableError(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause.Error(), err.Error())
	assert.Equal(t, "non-retryable error", NonRetryableError{}.Error())
}
