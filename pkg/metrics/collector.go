// Package metrics exposes Prometheus instrumentation for the decision
// pipeline: outcome counts, constraint violations, layer latencies, token
// spend, and audit queue health.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"helios-hq/ceres/pkg/router"
)

// Config contains configuration for the metrics collector.
type Config struct {
	// Enabled toggles metric recording. When false every Record call is a
	// no-op.
	Enabled bool

	// Namespace and Subsystem prefix every metric name.
	Namespace string
	Subsystem string

	// GuardrailLatencyBuckets are histogram buckets for the deterministic
	// layer, which completes in microseconds.
	GuardrailLatencyBuckets []float64

	// DetectorLatencyBuckets are histogram buckets for detector round
	// trips, which take seconds.
	DetectorLatencyBuckets []float64
}

// DefaultConfig returns the standard metrics configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:                 true,
		Namespace:               "helios",
		Subsystem:               "ceres",
		GuardrailLatencyBuckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		DetectorLatencyBuckets:  []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	}
}

// Collector registers and records all pipeline metrics on a private
// registry.
type Collector struct {
	config   Config
	registry *prometheus.Registry

	decisionsTotal  *prometheus.CounterVec
	violationsTotal *prometheus.CounterVec

	guardrailLatency prometheus.Histogram
	detectorLatency  prometheus.Histogram

	detectorDispatches *prometheus.CounterVec
	tokensTotal        *prometheus.CounterVec

	windowFill   prometheus.Gauge
	auditWritten prometheus.Gauge
	auditDropped prometheus.Gauge
}

// NewCollector creates a metrics collector. If registry is nil a private
// registry is created.
func NewCollector(config Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if config.Namespace == "" {
		config.Namespace = DefaultConfig().Namespace
	}
	if config.Subsystem == "" {
		config.Subsystem = DefaultConfig().Subsystem
	}
	if len(config.GuardrailLatencyBuckets) == 0 {
		config.GuardrailLatencyBuckets = DefaultConfig().GuardrailLatencyBuckets
	}
	if len(config.DetectorLatencyBuckets) == 0 {
		config.DetectorLatencyBuckets = DefaultConfig().DetectorLatencyBuckets
	}

	c := &Collector{
		config:   config,
		registry: registry,

		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "decisions_total",
				Help:      "Total decisions produced, by outcome",
			},
			[]string{"outcome"},
		),

		violationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "constraint_violations_total",
				Help:      "Total constraint violations, by severity",
			},
			[]string{"severity"},
		),

		guardrailLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "guardrail_latency_seconds",
				Help:      "Deterministic constraint check latency",
				Buckets:   config.GuardrailLatencyBuckets,
			},
		),

		detectorLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "detector_latency_seconds",
				Help:      "Anomaly detector round-trip latency",
				Buckets:   config.DetectorLatencyBuckets,
			},
		),

		detectorDispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "detector_dispatches_total",
				Help:      "Total detector window dispatches, by result",
			},
			[]string{"result"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "detector_tokens_total",
				Help:      "Total detector tokens consumed, by direction",
			},
			[]string{"direction"},
		),

		windowFill: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "detector_window_fill",
				Help:      "Frames currently accumulated toward the next dispatch",
			},
		),

		auditWritten: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "audit_records_written",
				Help:      "Audit records persisted this session",
			},
		),

		auditDropped: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "audit_records_dropped",
				Help:      "Audit records dropped due to a full queue this session",
			},
		),
	}

	registry.MustRegister(
		c.decisionsTotal,
		c.violationsTotal,
		c.guardrailLatency,
		c.detectorLatency,
		c.detectorDispatches,
		c.tokensTotal,
		c.windowFill,
		c.auditWritten,
		c.auditDropped,
	)

	return c
}

// RecordDecision records one completed decision and its performance data.
func (c *Collector) RecordDecision(event *router.Event, perf *router.Perf) {
	if !c.config.Enabled {
		return
	}

	c.decisionsTotal.WithLabelValues(string(event.Outcome)).Inc()

	if event.Guardrail != nil {
		for _, v := range event.Guardrail.Violations {
			c.violationsTotal.WithLabelValues(string(v.Severity)).Inc()
		}
	}

	if perf == nil {
		return
	}
	c.guardrailLatency.Observe(perf.GuardrailLatency.Seconds())
	if perf.DetectorLatency != nil {
		c.detectorLatency.Observe(perf.DetectorLatency.Seconds())
	}
	if perf.Usage != nil {
		c.tokensTotal.WithLabelValues("input").Add(float64(perf.Usage.InputTokens))
		c.tokensTotal.WithLabelValues("output").Add(float64(perf.Usage.OutputTokens))
	}
}

// RecordDispatch records the result of one detector dispatch: "nominal",
// "anomaly", or "error".
func (c *Collector) RecordDispatch(result string) {
	if !c.config.Enabled {
		return
	}
	c.detectorDispatches.WithLabelValues(result).Inc()
}

// SetWindowFill tracks how many frames the router has accumulated.
func (c *Collector) SetWindowFill(n int) {
	if !c.config.Enabled {
		return
	}
	c.windowFill.Set(float64(n))
}

// SetAuditCounters publishes the audit logger's written and dropped totals.
func (c *Collector) SetAuditCounters(written, dropped int64) {
	if !c.config.Enabled {
		return
	}
	c.auditWritten.Set(float64(written))
	c.auditDropped.Set(float64(dropped))
}

// Handler returns the Prometheus scrape endpoint for this collector's
// registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// Serve starts a metrics HTTP server on addr with the scrape handler at
// path. It blocks until the server fails.
func (c *Collector) Serve(addr, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, c.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}
