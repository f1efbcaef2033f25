package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/resellr-backend/pkg/config"
	"github.com/angelmondragon/resellr-backend/pkg/db/models"
	"github.com/angelmondragon/resellr-backend/pkg/enums"
	"github.com/angelmondragon/resellr-backend/pkg/outbox"
	"github.com/angelmondragon/resellr-backend/pkg/outbox/payloads"
)

// EventDescriptor says where an event type is published and how its data decodes.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is an outbox row that passed validation.
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

func payloadOf[T any]() func() any {
	return func() any { return new(T) }
}

// sellOrderEvents lists every event the sell order aggregate emits.
var sellOrderEvents = map[enums.OutboxEventType]func() any{
	enums.EventSellOrderCreated:   payloadOf[payloads.SellOrderCreatedEvent](),
	enums.EventSellOrderAssigned:  payloadOf[payloads.SellOrderAssignedEvent](),
	enums.EventSellOrderPickedUp:  payloadOf[payloads.SellOrderStatusEvent](),
	enums.EventSellOrderEvaluated: payloadOf[payloads.SellOrderEvaluatedEvent](),
	enums.EventSellOrderCompleted: payloadOf[payloads.SellOrderStatusEvent](),
	enums.EventSellOrderCancelled: payloadOf[payloads.SellOrderStatusEvent](),
}

// NewEventRegistry routes every sell order event to the configured topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topic := strings.TrimSpace(cfg.SellEventsTopic)
	if topic == "" {
		return nil, errors.New("sell events topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(sellOrderEvents))}
	for eventType, factory := range sellOrderEvents {
		reg.entries[eventType] = EventDescriptor{
			EventType:      eventType,
			AggregateType:  enums.AggregateSellOrder,
			Topic:          topic,
			PayloadFactory: factory,
		}
	}
	return reg, nil
}

// Resolve validates the row and decodes its typed payload. Every failure is
// non-retryable since the row itself is at fault.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, err := r.describe(event)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

func (r *EventRegistry) describe(event models.OutboxEvent) (EventDescriptor, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return desc, fmt.Errorf("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return desc, fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return desc, errors.New("missing aggregate_id")
	}
	return desc, nil
}
