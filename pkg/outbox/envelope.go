package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const currentEnvelopeVersion = 1

var (
	ErrEmptyEnvelope = errors.New("outbox envelope is empty")
	ErrMissingData   = errors.New("outbox envelope has no data")
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope is what an outbox row stores and what consumers receive.
// Data holds the event-specific body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// sealEnvelope encodes data and wraps it with a fresh event id. A zero
// version becomes currentEnvelopeVersion.
func sealEnvelope(event DomainEvent, occurredAt time.Time) (PayloadEnvelope, []byte, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return PayloadEnvelope{}, nil, fmt.Errorf("encode %s data: %w", event.EventType, err)
	}
	env := PayloadEnvelope{
		Version:    max(event.Version, currentEnvelopeVersion),
		EventID:    uuid.NewString(),
		OccurredAt: occurredAt.UTC(),
		Actor:      event.Actor,
		Data:       data,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return PayloadEnvelope{}, nil, fmt.Errorf("encode envelope: %w", err)
	}
	return env, raw, nil
}

// OpenEnvelope decodes a stored payload. It fails when the envelope carries
// no data, since every registered event has a body.
func OpenEnvelope(raw []byte) (PayloadEnvelope, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return PayloadEnvelope{}, ErrEmptyEnvelope
	}
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return PayloadEnvelope{}, ErrMissingData
	}
	return env, nil
}
