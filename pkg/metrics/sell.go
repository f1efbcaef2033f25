package metrics

import "github.com/prometheus/client_golang/prometheus"

// SellMetrics tracks the offer session and sell order funnel.
type SellMetrics struct {
	sessionsCreated prometheus.Counter
	recomputations  *prometheus.CounterVec
	sessionsCleaned prometheus.Counter
	ordersCreated   prometheus.Counter
	reEvaluations   prometheus.Counter
	priceDelta      prometheus.Histogram
}

// NewSellMetrics registers the sell metrics. A nil registerer yields a no-op recorder.
func NewSellMetrics(reg prometheus.Registerer) *SellMetrics {
	if reg == nil {
		return &SellMetrics{}
	}
	m := &SellMetrics{
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sell",
			Name:      "sessions_created_total",
			Help:      "Offer sessions started.",
		}),
		recomputations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sell",
			Name:      "session_recomputations_total",
			Help:      "Offer session price recomputations by changed selection.",
		}, []string{"selection"}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sell",
			Name:      "sessions_cleaned_total",
			Help:      "Expired offer sessions removed.",
		}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sell",
			Name:      "orders_created_total",
			Help:      "Sell orders created from offer sessions.",
		}),
		reEvaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sell",
			Name:      "re_evaluations_total",
			Help:      "Agent re-evaluations persisted.",
		}),
		priceDelta: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sell",
			Name:      "re_evaluation_difference",
			Help:      "Re-evaluated subtotal minus the online quote, in currency units.",
			Buckets:   []float64{-10000, -5000, -2000, -1000, -500, -100, 0, 100, 500, 1000},
		}),
	}
	reg.MustRegister(m.sessionsCreated, m.recomputations, m.sessionsCleaned, m.ordersCreated, m.reEvaluations, m.priceDelta)
	return m
}

func (m *SellMetrics) IncSessionCreated() {
	if m == nil || m.sessionsCreated == nil {
		return
	}
	m.sessionsCreated.Inc()
}

func (m *SellMetrics) IncRecomputation(selection string) {
	if m == nil || m.recomputations == nil {
		return
	}
	m.recomputations.WithLabelValues(normalizeLabel(selection)).Inc()
}

func (m *SellMetrics) AddSessionsCleaned(n int64) {
	if m == nil || m.sessionsCleaned == nil || n <= 0 {
		return
	}
	m.sessionsCleaned.Add(float64(n))
}

func (m *SellMetrics) IncOrderCreated() {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.Inc()
}

// ObserveReEvaluation counts a re-evaluation and records how far it moved the price.
func (m *SellMetrics) ObserveReEvaluation(difference int64) {
	if m == nil || m.reEvaluations == nil {
		return
	}
	m.reEvaluations.Inc()
	m.priceDelta.Observe(float64(difference))
}
