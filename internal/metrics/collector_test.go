package chatmetrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	chatmetrics "github.com/chatcore/chatd/internal/metrics"
)

func TestNewCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := chatmetrics.NewCollector(reg)

	if c.Sessions == nil {
		t.Error("Sessions is nil")
	}
	if c.MessagesRouted == nil {
		t.Error("MessagesRouted is nil")
	}
	if c.Errors == nil {
		t.Error("Errors is nil")
	}
	if c.StatusTransitions == nil {
		t.Error("StatusTransitions is nil")
	}

	// Verify all metrics are registered by gathering them.
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
}

func TestSessionsGauge(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := chatmetrics.NewCollector(reg)

	c.SessionRegistered()
	c.SessionRegistered()
	if val := gaugeValue(t, c.Sessions); val != 2 {
		t.Errorf("after two SessionRegistered: sessions gauge = %v, want 2", val)
	}

	c.SessionRemoved()
	if val := gaugeValue(t, c.Sessions); val != 1 {
		t.Errorf("after SessionRemoved: sessions gauge = %v, want 1", val)
	}
}

func TestMessagesRouted(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := chatmetrics.NewCollector(reg)

	c.MessageRouted("broadcast")
	c.MessageRouted("broadcast")
	c.MessageRouted("private")

	if val := counterValue(t, c.MessagesRouted, "broadcast"); val != 2 {
		t.Errorf("MessagesRouted(broadcast) = %v, want 2", val)
	}
	if val := counterValue(t, c.MessagesRouted, "private"); val != 1 {
		t.Errorf("MessagesRouted(private) = %v, want 1", val)
	}
}

func TestErrorsCounter(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := chatmetrics.NewCollector(reg)

	c.ErrorOccurred("name_taken")
	c.ErrorOccurred("name_taken")
	c.ErrorOccurred("malformed")

	if val := counterValue(t, c.Errors, "name_taken"); val != 2 {
		t.Errorf("Errors(name_taken) = %v, want 2", val)
	}
	if val := counterValue(t, c.Errors, "malformed"); val != 1 {
		t.Errorf("Errors(malformed) = %v, want 1", val)
	}
}

func TestStatusTransitions(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := chatmetrics.NewCollector(reg)

	c.StatusTransition("ACTIVO", "INACTIVO")
	c.StatusTransition("ACTIVO", "INACTIVO")
	c.StatusTransition("ACTIVO", "OCUPADO")

	if val := counterValue(t, c.StatusTransitions, "ACTIVO", "INACTIVO"); val != 2 {
		t.Errorf("StatusTransitions(ACTIVO->INACTIVO) = %v, want 2", val)
	}
	if val := counterValue(t, c.StatusTransitions, "ACTIVO", "OCUPADO"); val != 1 {
		t.Errorf("StatusTransitions(ACTIVO->OCUPADO) = %v, want 1", val)
	}
}

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

// gaugeValue reads the current value of a plain Gauge.
func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()

	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetGauge().GetValue()
}

// counterValue reads the current value of a CounterVec with the given labels.
func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetCounter().GetValue()
}
