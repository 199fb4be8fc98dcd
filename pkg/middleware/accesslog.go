// Package middleware provides framework stages that can be registered with
// router.Use or per route.
package middleware

import (
	"time"

	"github.com/shashiranjanraj/ctxflow/pkg/ctx"
	"github.com/shashiranjanraj/ctxflow/pkg/logger"
	"github.com/shashiranjanraj/ctxflow/pkg/pipeline"
	"github.com/shashiranjanraj/ctxflow/pkg/result"
)

const accessLogStartKey = "middleware.accesslog.start"

type accessLog struct{}

// AccessLog logs each request with method, path, route, status, duration
// and client IP. It logs through the request's logger, so registering it
// inside the stage that injects the correlation id tags every line.
func AccessLog() pipeline.Stage { return accessLog{} }

func (accessLog) Name() string { return "access_log" }

func (accessLog) Before(x *ctx.Context) (result.Result, bool) {
	x.Set(accessLogStartKey, time.Now())
	return result.Result{}, false
}

func (accessLog) After(x *ctx.Context, res result.Result) {
	v, _ := x.Get(accessLogStartKey)
	start, _ := v.(time.Time)

	args := []any{
		"method", x.Method(),
		"path", x.Path(),
		"route", x.RoutePattern(),
		"status", res.StatusCode(),
		"duration", time.Since(start).String(),
		"ip", x.ClientIP(),
	}
	log := logger.WithCtx(x.Context())
	if res.Faulted() {
		log.Warn("request", append(args, "error", res.Err.Error())...)
		return
	}
	log.Info("request", args...)
}
