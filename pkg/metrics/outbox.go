package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics records relay throughput for the outbox publisher.
type OutboxMetrics struct {
	duration  prometheus.Histogram
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
	terminal  *prometheus.CounterVec
}

// NewOutboxMetrics registers the outbox metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	duration := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_batch_duration_seconds",
		Help:    "Duration of one outbox relay batch in seconds.",
		Buckets: prometheus.DefBuckets,
	}))
	published := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox events delivered to the broker.",
	}, []string{"event_type"}))
	failed := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_failed_total",
		Help: "Outbox publish attempts that failed and will be retried.",
	}, []string{"event_type"}))
	terminal := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_terminal_total",
		Help: "Outbox events that exhausted their attempts.",
	}, []string{"event_type"}))
	return &OutboxMetrics{
		duration:  duration,
		published: published,
		failed:    failed,
		terminal:  terminal,
	}
}

// ObserveBatch records how long one relay batch took.
func (o *OutboxMetrics) ObserveBatch(d time.Duration) {
	if o == nil || o.duration == nil {
		return
	}
	o.duration.Observe(d.Seconds())
}

func (o *OutboxMetrics) IncPublished(eventType string) {
	if o == nil || o.published == nil {
		return
	}
	o.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (o *OutboxMetrics) IncFailed(eventType string) {
	if o == nil || o.failed == nil {
		return
	}
	o.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (o *OutboxMetrics) IncTerminal(eventType string) {
	if o == nil || o.terminal == nil {
		return
	}
	o.terminal.WithLabelValues(normalizeLabel(eventType)).Inc()
}
