package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the harness CLI/daemon.
type Metrics struct {
	registry       *prometheus.Registry
	Steps          *prometheus.CounterVec
	StepDuration   *prometheus.HistogramVec
	Runs           *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	ActiveRuns     *prometheus.GaugeVec
	TransportErrs  *prometheus.CounterVec
	EngineLaunches prometheus.Counter
}

// NewMetrics constructs a metrics registry with harness collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	steps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simharness_steps_total",
		Help: "Plan steps executed, by endpoint and outcome",
	}, []string{"endpoint", "status"})

	stepDurs := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "simharness_step_duration_seconds",
		Help:    "Single step round-trip duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simharness_runs_total",
		Help: "Plan runs, by outcome",
	}, []string{"status"})

	runDurs := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "simharness_run_duration_seconds",
		Help:    "Whole plan run duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	active := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "simharness_active_runs",
		Help: "Plan runs currently streaming, by transport",
	}, []string{"transport"})

	trErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simharness_transport_errors_total",
		Help: "Transport-level errors by transport and reason",
	}, []string{"transport", "reason"})

	launches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simharness_engine_launches_total",
		Help: "Engine child processes started",
	})

	reg.MustRegister(steps, stepDurs, runs, runDurs, active, trErrors, launches)

	return &Metrics{
		registry:       reg,
		Steps:          steps,
		StepDuration:   stepDurs,
		Runs:           runs,
		RunDuration:    runDurs,
		ActiveRuns:     active,
		TransportErrs:  trErrors,
		EngineLaunches: launches,
	}
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordStep records one step execution with its round-trip duration.
func (m *Metrics) RecordStep(endpoint, status string, d time.Duration) {
	if m == nil {
		return
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.Steps.WithLabelValues(endpoint, status).Inc()
	m.StepDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordRun records a completed plan run.
func (m *Metrics) RecordRun(status string, d time.Duration) {
	if m == nil {
		return
	}
	if status == "" {
		status = "unknown"
	}
	m.Runs.WithLabelValues(status).Inc()
	m.RunDuration.WithLabelValues(status).Observe(d.Seconds())
}

// IncActiveRuns increments the active run gauge.
func (m *Metrics) IncActiveRuns(transport string) {
	if m == nil {
		return
	}
	m.ActiveRuns.WithLabelValues(transport).Inc()
}

// DecActiveRuns decrements the active run gauge.
func (m *Metrics) DecActiveRuns(transport string) {
	if m == nil {
		return
	}
	m.ActiveRuns.WithLabelValues(transport).Dec()
}

// RecordTransportError records a transport-level error.
func (m *Metrics) RecordTransportError(transport, reason string) {
	if m == nil {
		return
	}
	if transport == "" {
		transport = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	m.TransportErrs.WithLabelValues(transport, reason).Inc()
}

// RecordEngineLaunch counts an engine child process start.
func (m *Metrics) RecordEngineLaunch() {
	if m == nil {
		return
	}
	m.EngineLaunches.Inc()
}

// EngineMetrics adapts Metrics to the simulator client's narrower metrics
// interface, attributing transport errors to the engine pipe.
type EngineMetrics struct {
	m *Metrics
}

// ForEngine returns the adapter. It is safe to call on a nil receiver.
func (m *Metrics) ForEngine() EngineMetrics {
	return EngineMetrics{m: m}
}

func (e EngineMetrics) RecordStep(endpoint, status string, d time.Duration) {
	e.m.RecordStep(endpoint, status, d)
}

func (e EngineMetrics) RecordTransportError(reason string) {
	e.m.RecordTransportError("engine", reason)
}
