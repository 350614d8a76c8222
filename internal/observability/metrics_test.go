package observability_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/PabloGalante/farum-insights/internal/observability"
)

func TestMetricsRecord(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())

	m.SessionStarted()
	m.SessionStarted()
	m.SessionEnded()
	m.EventEnqueued("session-start")
	m.BatchDelivered(3)
	m.BatchFailed()
	m.CrisisDetected("crisis", true)
	m.Assignment("assigned")
	m.ExperimentStopped("ethical")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LiveSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsEnqueued.WithLabelValues("session-start")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.EventsDelivered))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeliveryFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CrisisDetections.WithLabelValues("crisis", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Assignments.WithLabelValues("assigned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExperimentStops.WithLabelValues("ethical")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *observability.Metrics

	assert.NotPanics(t, func() {
		m.SessionStarted()
		m.EventEnqueued("x")
		m.BatchFailed()
		m.CrisisDetected("high", false)
		m.Assignment("sticky")
		m.ExperimentStopped("manual")
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", observability.ParseLevel("debug").String())
	assert.Equal(t, "WARN", observability.ParseLevel("warning").String())
	assert.Equal(t, "INFO", observability.ParseLevel("").String())
}
