package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCartMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCartMetrics(reg)
	m.ObserveOperation("add_item", OutcomeSuccess)
	m.ObserveOperation("add_item", "INSUFFICIENT_STOCK")
	m.IncMergeWarning("insufficient_stock")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "cart_operations_total", "outcome", "INSUFFICIENT_STOCK"); err != nil {
		t.Fatalf("fetch operations: %v", err)
	} else if got != 1 {
		t.Fatalf("expected one failed add, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "cart_merge_warnings_total", "reason", "insufficient_stock"); err != nil {
		t.Fatalf("fetch warnings: %v", err)
	} else if got != 1 {
		t.Fatalf("expected one warning, got %f", got)
	}
}

func TestOrderMetricsObservesValueOnlyOnSuccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)
	m.ObservePlaced(OutcomeSuccess, 99)
	m.ObservePlaced("INSUFFICIENT_STOCK", 0)
	m.ObserveTransition("delivered")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	mf := findMetricFamily(mfs, "order_total_price")
	if mf == nil {
		t.Fatal("expected order_total_price histogram")
	}
	hist := mf.GetMetric()[0].GetHistogram()
	if hist.GetSampleCount() != 1 || hist.GetSampleSum() != 99 {
		t.Fatalf("expected a single 99 sample, got count=%d sum=%f", hist.GetSampleCount(), hist.GetSampleSum())
	}
	if got, err := fetchCounterValue(mfs, "order_status_transitions_total", "status", "delivered"); err != nil || got != 1 {
		t.Fatalf("expected one delivered transition, got %f (%v)", got, err)
	}
}

func TestOutboxMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.ObserveBatch(250 * time.Millisecond)
	m.IncPublished("order.created")
	m.IncFailed("order.created")
	m.IncTerminal("order.paid")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for name, label := range map[string]string{
		"outbox_published_total": "order.created",
		"outbox_failed_total":    "order.created",
		"outbox_terminal_total":  "order.paid",
	} {
		if got, err := fetchCounterValue(mfs, name, "event_type", label); err != nil {
			t.Fatalf("fetch %s: %v", name, err)
		} else if got != 1 {
			t.Fatalf("expected %s=1, got %f", name, got)
		}
	}
	mf := findMetricFamily(mfs, "outbox_batch_duration_seconds")
	if mf == nil || mf.GetMetric()[0].GetHistogram().GetSampleSum() <= 0 {
		t.Fatal("expected batch duration to be observed")
	}
}

func TestNilRecordersAreNoOps(t *testing.T) {
	var cart *CartMetrics
	cart.ObserveOperation("clear", OutcomeSuccess)
	NewOrderMetrics(nil).ObservePlaced(OutcomeSuccess, 1)
	NewOutboxMetrics(nil).IncPublished("x")
}

func TestRegisteringTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCartMetrics(reg)
	NewCartMetrics(reg)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
