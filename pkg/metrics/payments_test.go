package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPaymentMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPaymentMetrics(reg)

	metrics.IncTransition("capture", "success")
	metrics.IncTransition("capture", "success")
	metrics.IncTransition("refund", "state_conflict")
	metrics.ObserveGatewayCall("initiate_payment", 120*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "payment_transitions_total", "transition", "capture"); err != nil {
		t.Fatalf("fetch capture counter: %v", err)
	} else if got != 2 {
		t.Fatalf("expected capture=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "payment_transitions_total", "transition", "refund"); err != nil {
		t.Fatalf("fetch refund counter: %v", err)
	} else if got != 1 {
		t.Fatalf("expected refund=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "gateway_call_duration_seconds", "operation", "initiate_payment"); err != nil {
		t.Fatalf("fetch gateway histogram: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestPaymentMetricsNilSafe(t *testing.T) {
	var metrics *PaymentMetrics
	metrics.IncTransition("capture", "success")
	metrics.ObserveGatewayCall("refund", time.Second)

	empty := NewPaymentMetrics(nil)
	empty.IncTransition("capture", "success")
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

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
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
