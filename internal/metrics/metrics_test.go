package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestLicenseMetricsCountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLicenseMetrics(reg)

	m.Observe("check", "ok")
	m.Observe("check", "ok")
	m.Observe("check", "license_expired")
	m.Observe("", "")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("check", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("check", "license_expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("unknown", "unknown")))
}

func TestLicenseMetricsNilSafe(t *testing.T) {
	var m *LicenseMetrics
	m.Observe("check", "ok")

	NewLicenseMetrics(nil).Observe("check", "ok")
}
