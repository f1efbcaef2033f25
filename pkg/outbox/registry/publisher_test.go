package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/resellr-backend/pkg/config"
	"github.com/angelmondragon/resellr-backend/pkg/db/models"
	"github.com/angelmondragon/resellr-backend/pkg/enums"
	"github.com/angelmondragon/resellr-backend/pkg/outbox"
	"github.com/angelmondragon/resellr-backend/pkg/outbox/payloads"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	orderID := uuid.New()
	payloadBytes := mustMarshal(t, payloads.SellOrderEvaluatedEvent{
		OrderID:          orderID,
		OrderNumber:      "SELL-20261001-000001",
		ReEvaluatedPrice: 20000,
		Negotiation:      -500,
		ProcessingFee:    49,
		FinalPrice:       19451,
	})

	event := models.OutboxEvent{
		EventType:     enums.EventSellOrderEvaluated,
		AggregateType: enums.AggregateSellOrder,
		AggregateID:   orderID,
		Payload:       mustEnvelope(t, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "sell-events" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.SellOrderEvaluatedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.OrderID != orderID || payload.FinalPrice != 19451 {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" {
		t.Fatalf("envelope missing event id")
	}
	if resolved.Envelope.OccurredAt.IsZero() {
		t.Fatalf("envelope missing occurred_at")
	}
}

func TestEventRegistryStatusEventsShareSchema(t *testing.T) {
	reg := newTestEventRegistry(t)

	for _, eventType := range []enums.OutboxEventType{
		enums.EventSellOrderPickedUp,
		enums.EventSellOrderCompleted,
		enums.EventSellOrderCancelled,
	} {
		event := models.OutboxEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateSellOrder,
			AggregateID:   uuid.New(),
			Payload: mustEnvelope(t, mustMarshal(t, payloads.SellOrderStatusEvent{
				OrderID: uuid.New(),
				Status:  enums.SellOrderStatusCancelled,
			})),
		}
		resolved, err := reg.Resolve(event)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", eventType, err)
		}
		if _, ok := resolved.Payload.(*payloads.SellOrderStatusEvent); !ok {
			t.Fatalf("%s: unexpected payload type %T", eventType, resolved.Payload)
		}
	}
}

func TestEventRegistryResolveRejections(t *testing.T) {
	reg := newTestEventRegistry(t)
	validPayload := mustEnvelope(t, mustMarshal(t, payloads.SellOrderCreatedEvent{OrderID: uuid.New()}))

	cases := []struct {
		name  string
		event models.OutboxEvent
	}{
		{
			name: "unknown event",
			event: models.OutboxEvent{
				EventType:     enums.OutboxEventType("something_else"),
				AggregateType: enums.AggregateSellOrder,
				AggregateID:   uuid.New(),
				Payload:       validPayload,
			},
		},
		{
			name: "aggregate mismatch",
			event: models.OutboxEvent{
				EventType:     enums.EventSellOrderCreated,
				AggregateType: enums.AggregateSellSession,
				AggregateID:   uuid.New(),
				Payload:       validPayload,
			},
		},
		{
			name: "missing aggregate id",
			event: models.OutboxEvent{
				EventType:     enums.EventSellOrderCreated,
				AggregateType: enums.AggregateSellOrder,
				Payload:       validPayload,
			},
		},
		{
			name: "empty data",
			event: models.OutboxEvent{
				EventType:     enums.EventSellOrderCreated,
				AggregateType: enums.AggregateSellOrder,
				AggregateID:   uuid.New(),
				Payload:       mustEnvelope(t, json.RawMessage("null")),
			},
		},
		{
			name: "broken envelope",
			event: models.OutboxEvent{
				EventType:     enums.EventSellOrderCreated,
				AggregateType: enums.AggregateSellOrder,
				AggregateID:   uuid.New(),
				Payload:       json.RawMessage("{"),
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := reg.Resolve(tc.event)
			if err == nil {
				t.Fatal("expected error")
			}
			var nonRetry NonRetryableError
			if !errors.As(err, &nonRetry) {
				t.Fatalf("expected non-retryable error, got %T", err)
			}
		})
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{SellEventsTopic: "  "}); err == nil {
		t.Fatal("expected error for blank topic")
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{SellEventsTopic: "sell-events"})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, data json.RawMessage) json.RawMessage {
	t.Helper()
	return mustMarshal(t, outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       data,
	})
}
