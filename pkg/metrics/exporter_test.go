package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/downfa11-org/go-journal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func getCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	_ = c.Write(m)
	return m.GetCounter().GetValue()
}

func getHistogramCount(o prometheus.Observer) uint64 {
	h, ok := o.(prometheus.Histogram)
	if !ok {
		return 0
	}
	m := &dto.Metric{}
	_ = h.Write(m)
	return m.GetHistogram().GetSampleCount()
}

func TestObserveSweep(t *testing.T) {
	group := "metrics-test"
	initialErrors := getCounterValue(metrics.SweepErrors.WithLabelValues(group))
	initialSweeps := getHistogramCount(metrics.SweepDuration.WithLabelValues(group))

	metrics.ObserveSweep(group, 20*time.Millisecond, nil)
	metrics.ObserveSweep(group, 30*time.Millisecond, errors.New("disk gone"))

	if got := getHistogramCount(metrics.SweepDuration.WithLabelValues(group)); got != initialSweeps+2 {
		t.Fatalf("SweepDuration count expected %v, got %v", initialSweeps+2, got)
	}
	if got := getCounterValue(metrics.SweepErrors.WithLabelValues(group)); got != initialErrors+1 {
		t.Fatalf("SweepErrors expected %v, got %v", initialErrors+1, got)
	}
}
