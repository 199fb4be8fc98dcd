package middleware

import (
	"github.com/shashiranjanraj/ctxflow/app/models"
	"github.com/shashiranjanraj/ctxflow/pkg/ctx"
	"github.com/shashiranjanraj/ctxflow/pkg/logger"
	"github.com/shashiranjanraj/ctxflow/pkg/pipeline"
	"github.com/shashiranjanraj/ctxflow/pkg/result"
)

type routeStage struct{}

// Route is attached to the hello route only. It reads the channels on the
// way out, after the action wrote them.
func Route() pipeline.Stage { return routeStage{} }

func (routeStage) Name() string { return "route" }

func (routeStage) Before(x *ctx.Context) (result.Result, bool) {
	logger.WithCtx(x.Context()).Debug("route stage", "route", x.RoutePattern(), "param", x.Param("param"))
	return result.Result{}, false
}

func (routeStage) After(x *ctx.Context, res result.Result) {
	side, _ := models.Param(x)
	logger.WithCtx(x.Context()).Debug("route stage observed response",
		"status", res.StatusCode(),
		"ambient", x.GetString(models.AmbientParamKey),
		"side_table", side,
	)
}
