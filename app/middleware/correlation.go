// Package middleware holds the application's own pipeline stages.
package middleware

import (
	"github.com/shashiranjanraj/ctxflow/app/models"
	"github.com/shashiranjanraj/ctxflow/pkg/correlation"
	"github.com/shashiranjanraj/ctxflow/pkg/ctx"
	"github.com/shashiranjanraj/ctxflow/pkg/logger"
	"github.com/shashiranjanraj/ctxflow/pkg/pipeline"
	"github.com/shashiranjanraj/ctxflow/pkg/result"
)

type global struct{}

// Global assigns a fresh correlation id before anything further in runs.
// The id is written to the RequestContext, the request context (with a
// logger tagged with it) and the X-Correlation-ID response header. A caller's
// own X-Correlation-ID is only logged as upstream_correlation_id.
func Global() pipeline.Stage { return global{} }

func (global) Name() string { return "global" }

func (global) Before(x *ctx.Context) (result.Result, bool) {
	id := correlation.New()

	rc, err := models.CurrentRequestContext(x)
	if err != nil {
		return result.Fault(err), true
	}
	rc.CorrelationID = id

	c := correlation.WithValue(x.Context(), id)
	log := logger.WithCtx(c).With("correlation_id", id)
	if up := correlation.Upstream(x.R); up != "" {
		log = log.With("upstream_correlation_id", up)
	}
	c = logger.InjectLogger(c, log)
	x.WithContext(c)
	x.SetHeader(correlation.Header, id)
	return result.Result{}, false
}

func (global) After(x *ctx.Context, res result.Result) {
	logger.WithCtx(x.Context()).Info("global stage observed response",
		"status", res.StatusCode(),
		"faulted", res.Faulted(),
	)
}
