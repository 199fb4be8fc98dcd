// Package metrics provides Prometheus instrumentation for ctxflow.
//
// Request metrics are recorded by the middleware.Metrics stage, stage
// timings by the pipeline runner, and fault reports by the reporter. The
// scrape endpoint is mounted outside the pipeline:
//
//	mux.Handle("/metrics", metrics.Handler())
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ─────────────────────────────────────────────
// Built-in metrics
// ─────────────────────────────────────────────

var (
	// RequestDuration tracks how long each request takes, broken down by
	// method, route pattern and status code.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ctxflow",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ctxflow",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	RequestInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ctxflow",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being served.",
	})

	// StageDuration covers a stage's pre-step, the inner call and its
	// post-step, labelled with how the stage finished.
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ctxflow",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"stage", "state"}, // state: "done" | "faulted"
	)

	FaultsReported = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ctxflow",
			Subsystem: "pipeline",
			Name:      "faults_reported_total",
			Help:      "Faults observed by the terminal reporter.",
		},
		[]string{"route"},
	)

	// ChannelMisses counts propagation channels the reporter found empty.
	ChannelMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ctxflow",
			Subsystem: "pipeline",
			Name:      "channel_misses_total",
			Help:      "Propagation channels reported as absent.",
		},
		[]string{"channel"},
	)

	SinkErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ctxflow",
			Subsystem: "report",
			Name:      "sink_errors_total",
			Help:      "Fault report sink publish failures.",
		},
		[]string{"sink"},
	)

	InterceptedCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ctxflow",
			Subsystem: "interceptor",
			Name:      "calls_total",
			Help:      "Calls observed by interceptors.",
		},
		[]string{"method", "outcome"}, // outcome: "ok" | "error"
	)

	CodecOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ctxflow",
			Subsystem: "codec",
			Name:      "operations_total",
			Help:      "Body encode/decode operations.",
		},
		[]string{"codec", "op"},
	)
)

// ─────────────────────────────────────────────
// Registry
// ─────────────────────────────────────────────

// DefaultRegistry is the Prometheus registry used by ctxflow.
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(collectors.NewGoCollector())
	DefaultRegistry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	DefaultRegistry.MustRegister(
		RequestDuration,
		RequestTotal,
		RequestInFlight,
		StageDuration,
		FaultsReported,
		ChannelMisses,
		SinkErrors,
		InterceptedCalls,
		CodecOperations,
	)
}

// Register lets you add your own prometheus.Collector to the registry.
func Register(c prometheus.Collector) error {
	return DefaultRegistry.Register(c)
}

// MustRegister panics if registration fails.
func MustRegister(c ...prometheus.Collector) {
	DefaultRegistry.MustRegister(c...)
}

// Handler exposes the registry in text and OpenMetrics formats.
func Handler() http.Handler {
	return promhttp.HandlerFor(DefaultRegistry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

// ObserveStage records one stage run:
//
//	defer metrics.ObserveStage("global", "done", time.Now())
func ObserveStage(stage, state string, start time.Time) {
	StageDuration.WithLabelValues(stage, state).Observe(time.Since(start).Seconds())
}

// RecordIntercept counts one intercepted call.
func RecordIntercept(method string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	InterceptedCalls.WithLabelValues(method, outcome).Inc()
}
