package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LicenseMetrics counts license operations by name and outcome.
type LicenseMetrics struct {
	operations *prometheus.CounterVec
}

// NewLicenseMetrics registers the counters on reg. A nil registerer yields a
// no-op recorder.
func NewLicenseMetrics(reg prometheus.Registerer) *LicenseMetrics {
	if reg == nil {
		return &LicenseMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "licensedesk",
		Name:      "license_operations_total",
		Help:      "License lifecycle and check operations by outcome.",
	}, []string{"op", "outcome"})
	reg.MustRegister(operations)
	return &LicenseMetrics{operations: operations}
}

func (m *LicenseMetrics) Observe(op, outcome string) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
