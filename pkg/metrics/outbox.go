package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outbox delivery outcomes.
const (
	OutboxOutcomePublished    = "published"
	OutboxOutcomeRetried      = "retried"
	OutboxOutcomeDeadLettered = "dead_lettered"
)

// OutboxMetrics tracks the outbox relay.
type OutboxMetrics struct {
	deliveries *prometheus.CounterVec
	batches    prometheus.Counter
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "deliveries_total",
			Help:      "Outbox rows settled by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "batches_failed_total",
			Help:      "Relay batches rolled back.",
		}),
	}
	reg.MustRegister(m.deliveries, m.batches)
	return m
}

func (m *OutboxMetrics) ObserveDelivery(eventType, outcome string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (m *OutboxMetrics) IncBatchFailed() {
	if m == nil || m.batches == nil {
		return
	}
	m.batches.Inc()
}
