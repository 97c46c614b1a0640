package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the reconciliation engine. A nil
// *Metrics is safe to use and records nothing.
type Metrics struct {
	config MetricsConfig

	gatewayRequests *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
	taskPolls       *prometheus.CounterVec
	taskWaits       *prometheus.HistogramVec
	outcomes        *prometheus.CounterVec
	schemaFailures  *prometheus.CounterVec
	activeSessions  prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector. When disabled, every observe
// method is a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return &Metrics{config: cfg}
	}

	registry := prometheus.NewRegistry()
	m := &Metrics{
		config:   cfg,
		registry: registry,

		gatewayRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "gateway_requests_total",
				Help:      "Controller requests by family, function and status code",
			},
			[]string{"family", "function", "status"},
		),
		gatewayDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "gateway_request_duration_seconds",
				Help:      "Controller request duration by family and function",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"family", "function"},
		),
		taskPolls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "task_polls_total",
				Help:      "Task status polls by terminal outcome",
			},
			[]string{"outcome"},
		),
		taskWaits: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "task_wait_duration_seconds",
				Help:      "Time spent waiting for task futures to resolve",
				Buckets:   []float64{1, 5, 15, 60, 300, 1200, 3600},
			},
			[]string{"outcome"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "reconcile_outcomes_total",
				Help:      "Per-entity reconcile outcomes by kind",
			},
			[]string{"kind", "outcome"},
		),
		schemaFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "schema_failures_total",
				Help:      "Playbook validation failures by failure kind",
			},
			[]string{"failure_kind"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "lan_automation_active_sessions",
				Help:      "LAN automation sessions currently tracked by the executor",
			},
		),
	}

	registry.MustRegister(
		m.gatewayRequests, m.gatewayDuration,
		m.taskPolls, m.taskWaits,
		m.outcomes, m.schemaFailures, m.activeSessions,
	)
	return m
}

// ObserveGatewayRequest records one controller request.
func (m *Metrics) ObserveGatewayRequest(family, function string, status int, elapsed time.Duration) {
	if m == nil || m.registry == nil {
		return
	}
	m.gatewayRequests.WithLabelValues(family, function, strconv.Itoa(status)).Inc()
	m.gatewayDuration.WithLabelValues(family, function).Observe(elapsed.Seconds())
}

// ObserveTaskWait records one completed task future wait.
func (m *Metrics) ObserveTaskWait(outcome string, elapsed time.Duration) {
	if m == nil || m.registry == nil {
		return
	}
	m.taskPolls.WithLabelValues(outcome).Inc()
	m.taskWaits.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveOutcome records one per-entity reconcile outcome.
func (m *Metrics) ObserveOutcome(kind, outcome string) {
	if m == nil || m.registry == nil {
		return
	}
	m.outcomes.WithLabelValues(kind, outcome).Inc()
}

// ObserveSchemaFailure records one validation failure.
func (m *Metrics) ObserveSchemaFailure(failureKind string) {
	if m == nil || m.registry == nil {
		return
	}
	m.schemaFailures.WithLabelValues(failureKind).Inc()
}

// SetActiveSessions records the tracked LAN automation session count.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil || m.registry == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// Handler returns the /metrics HTTP handler for the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts a metrics listener when the configuration names one. The
// listener runs until the process exits.
func (m *Metrics) Serve() {
	if m == nil || m.registry == nil || m.config.Listen == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go func() {
		_ = http.ListenAndServe(m.config.Listen, mux) //nolint:gosec // operator-chosen listen address
	}()
}
