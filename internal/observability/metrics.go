package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "farum"

// Metrics holds the Prometheus collectors for the insights engine.
//
// All recording methods are safe on a nil *Metrics, so services can run
// without instrumentation in tests.
type Metrics struct {
	// LiveSessions tracks sessions currently held in memory.
	LiveSessions prometheus.Gauge

	// EventsEnqueued counts analytics events by type.
	EventsEnqueued *prometheus.CounterVec

	// EventsDelivered counts events handed to the sink successfully.
	EventsDelivered prometheus.Counter

	// DeliveryFailures counts failed sink flushes (one per batch).
	DeliveryFailures prometheus.Counter

	// StressIndicators counts derived indicators by type and severity.
	StressIndicators *prometheus.CounterVec

	// CrisisDetections counts positive crisis verdicts by severity and
	// whether an intervention was performed.
	CrisisDetections *prometheus.CounterVec

	// Assignments counts variant assignment decisions by outcome
	// (assigned, sticky, ineligible, crisis_excluded, not_allocated, inactive).
	Assignments *prometheus.CounterVec

	// ExperimentStops counts experiment cancellations by kind (manual, ethical).
	ExperimentStops *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors against reg.
// Pass prometheus.NewRegistry() in tests to stay isolated from the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		LiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "sessions",
			Name:      "live",
			Help:      "Number of sessions currently tracked in memory",
		}),
		EventsEnqueued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "events",
			Name:      "enqueued_total",
			Help:      "Analytics events enqueued by type",
		}, []string{"type"}),
		EventsDelivered: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "events",
			Name:      "delivered_total",
			Help:      "Analytics events delivered to the sink",
		}),
		DeliveryFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "events",
			Name:      "delivery_failures_total",
			Help:      "Event batches the sink failed to accept",
		}),
		StressIndicators: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "crisis",
			Name:      "stress_indicators_total",
			Help:      "Stress indicators derived by type and severity",
		}, []string{"type", "severity"}),
		CrisisDetections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "crisis",
			Name:      "detections_total",
			Help:      "Positive crisis verdicts by severity and intervention",
		}, []string{"severity", "intervened"}),
		Assignments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "experiments",
			Name:      "assignments_total",
			Help:      "Variant assignment decisions by outcome",
		}, []string{"outcome"}),
		ExperimentStops: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "experiments",
			Name:      "stops_total",
			Help:      "Experiment cancellations by kind",
		}, []string{"kind"}),
	}
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.LiveSessions.Inc()
}

func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.LiveSessions.Dec()
}

func (m *Metrics) EventEnqueued(eventType string) {
	if m == nil {
		return
	}
	m.EventsEnqueued.WithLabelValues(eventType).Inc()
}

func (m *Metrics) BatchDelivered(n int) {
	if m == nil {
		return
	}
	m.EventsDelivered.Add(float64(n))
}

func (m *Metrics) BatchFailed() {
	if m == nil {
		return
	}
	m.DeliveryFailures.Inc()
}

func (m *Metrics) StressIndicator(indicatorType, severity string) {
	if m == nil {
		return
	}
	m.StressIndicators.WithLabelValues(indicatorType, severity).Inc()
}

func (m *Metrics) CrisisDetected(severity string, intervened bool) {
	if m == nil {
		return
	}
	label := "false"
	if intervened {
		label = "true"
	}
	m.CrisisDetections.WithLabelValues(severity, label).Inc()
}

func (m *Metrics) Assignment(outcome string) {
	if m == nil {
		return
	}
	m.Assignments.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ExperimentStopped(kind string) {
	if m == nil {
		return
	}
	m.ExperimentStops.WithLabelValues(kind).Inc()
}
