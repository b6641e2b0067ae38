package metrics

import "github.com/prometheus/client_golang/prometheus"

// OrderMetrics tracks order placement and lifecycle transitions.
type OrderMetrics struct {
	placed      *prometheus.CounterVec
	transitions *prometheus.CounterVec
	value       prometheus.Histogram
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	placed := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Order placement attempts by outcome.",
	}, []string{"outcome"}))
	transitions := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Order status changes by target status.",
	}, []string{"status"}))
	value := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_total_price",
		Help:    "Distribution of stored order totals.",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
	}))
	return &OrderMetrics{
		placed:      placed,
		transitions: transitions,
		value:       value,
	}
}

// ObservePlaced records an order placement attempt.
func (o *OrderMetrics) ObservePlaced(outcome string, total float64) {
	if o == nil || o.placed == nil {
		return
	}
	o.placed.WithLabelValues(normalizeLabel(outcome)).Inc()
	if outcome == OutcomeSuccess && o.value != nil {
		o.value.Observe(total)
	}
}

// ObserveTransition records a status change.
func (o *OrderMetrics) ObserveTransition(status string) {
	if o == nil || o.transitions == nil {
		return
	}
	o.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}
