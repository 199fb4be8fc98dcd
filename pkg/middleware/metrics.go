package middleware

import (
	"strconv"
	"time"

	"github.com/shashiranjanraj/ctxflow/pkg/ctx"
	"github.com/shashiranjanraj/ctxflow/pkg/metrics"
	"github.com/shashiranjanraj/ctxflow/pkg/pipeline"
	"github.com/shashiranjanraj/ctxflow/pkg/result"
)

const metricsStartKey = "middleware.metrics.start"

type metricsStage struct{}

// Metrics records request count, latency and in-flight requests. Unmatched
// routes are labelled "unmatched" to keep label cardinality bounded.
func Metrics() pipeline.Stage { return metricsStage{} }

func (metricsStage) Name() string { return "metrics" }

func (metricsStage) Before(x *ctx.Context) (result.Result, bool) {
	metrics.RequestInFlight.Inc()
	x.Set(metricsStartKey, time.Now())
	return result.Result{}, false
}

func (metricsStage) After(x *ctx.Context, res result.Result) {
	metrics.RequestInFlight.Dec()

	v, _ := x.Get(metricsStartKey)
	start, _ := v.(time.Time)
	route := x.RoutePattern()
	if route == "" {
		route = "unmatched"
	}
	status := strconv.Itoa(res.StatusCode())

	metrics.RequestDuration.WithLabelValues(x.Method(), route, status).Observe(time.Since(start).Seconds())
	metrics.RequestTotal.WithLabelValues(x.Method(), route, status).Inc()
}
