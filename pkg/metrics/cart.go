package metrics

import "github.com/prometheus/client_golang/prometheus"

// CartMetrics counts cart mutations and reconciliation warnings.
type CartMetrics struct {
	operations    *prometheus.CounterVec
	mergeWarnings *prometheus.CounterVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	operations := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operations_total",
		Help: "Cart operations by name and outcome code.",
	}, []string{"operation", "outcome"}))
	mergeWarnings := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_merge_warnings_total",
		Help: "Guest cart lines skipped during reconciliation, by reason.",
	}, []string{"reason"}))
	return &CartMetrics{
		operations:    operations,
		mergeWarnings: mergeWarnings,
	}
}

// ObserveOperation records one cart operation. outcome is "success" or an error code.
func (c *CartMetrics) ObserveOperation(operation, outcome string) {
	if c == nil || c.operations == nil {
		return
	}
	c.operations.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// IncMergeWarning counts one skipped guest line.
func (c *CartMetrics) IncMergeWarning(reason string) {
	if c == nil || c.mergeWarnings == nil {
		return
	}
	c.mergeWarnings.WithLabelValues(normalizeLabel(reason)).Inc()
}
