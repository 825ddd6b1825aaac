package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stream_operators"

// Metrics holds the operator, reasoning and synthesis collectors.
// Every method is safe on a nil receiver so components can run unmetered.
type Metrics struct {
	registry *prometheus.Registry

	EventsReceived   *prometheus.CounterVec
	Emissions        *prometheus.CounterVec
	HandlerErrors    *prometheus.CounterVec
	HandlerDuration  *prometheus.HistogramVec
	ReasoningCalls   *prometheus.CounterVec
	ReasoningRetries prometheus.Counter
	Syntheses        *prometheus.CounterVec
	OperatorsRunning prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		EventsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "operator",
				Name:      "events_received_total",
				Help:      "Total number of stream events delivered to operators",
			},
			[]string{"function", "symbol"},
		),

		Emissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "operator",
				Name:      "emissions_total",
				Help:      "Total number of results emitted by operators",
			},
			[]string{"function", "symbol"},
		),

		HandlerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "operator",
				Name:      "handler_errors_total",
				Help:      "Total number of per-event handler failures",
			},
			[]string{"function", "type"},
		),

		HandlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "operator",
				Name:      "handler_duration_seconds",
				Help:      "Per-event handler duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"function"},
		),

		ReasoningCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reasoning",
				Name:      "calls_total",
				Help:      "Total number of completion requests",
			},
			[]string{"status"},
		),

		ReasoningRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reasoning",
				Name:      "retries_total",
				Help:      "Total number of retried completion attempts",
			},
		),

		Syntheses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "synthesis",
				Name:      "functions_total",
				Help:      "Total number of synthesized functions",
			},
			[]string{"kind", "status"},
		),

		OperatorsRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "operator",
				Name:      "running",
				Help:      "Number of operators currently running",
			},
		),
	}

	m.registry.MustRegister(
		m.EventsReceived,
		m.Emissions,
		m.HandlerErrors,
		m.HandlerDuration,
		m.ReasoningCalls,
		m.ReasoningRetries,
		m.Syntheses,
		m.OperatorsRunning,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// -----------------------------------------------------------------------------

func (m *Metrics) RecordEvent(function, symbol string) {
	if m == nil {
		return
	}
	m.EventsReceived.WithLabelValues(function, symbol).Inc()
}

func (m *Metrics) RecordEmission(function, symbol string) {
	if m == nil {
		return
	}
	m.Emissions.WithLabelValues(function, symbol).Inc()
}

func (m *Metrics) RecordHandlerError(function, errType string) {
	if m == nil {
		return
	}
	m.HandlerErrors.WithLabelValues(function, errType).Inc()
}

func (m *Metrics) ObserveHandler(function string, d time.Duration) {
	if m == nil {
		return
	}
	m.HandlerDuration.WithLabelValues(function).Observe(d.Seconds())
}

func (m *Metrics) RecordReasoningCall(ok bool) {
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "error"
	}
	m.ReasoningCalls.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordReasoningRetry() {
	if m == nil {
		return
	}
	m.ReasoningRetries.Inc()
}

func (m *Metrics) RecordSynthesis(kind string, ok bool) {
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "error"
	}
	m.Syntheses.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) OperatorStarted() {
	if m == nil {
		return
	}
	m.OperatorsRunning.Inc()
}

func (m *Metrics) OperatorStopped() {
	if m == nil {
		return
	}
	m.OperatorsRunning.Dec()
}
