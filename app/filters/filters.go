// Package filters holds the hello action's filters.
package filters

import (
	"github.com/shashiranjanraj/ctxflow/app/models"
	"github.com/shashiranjanraj/ctxflow/pkg/ctx"
	"github.com/shashiranjanraj/ctxflow/pkg/logger"
	"github.com/shashiranjanraj/ctxflow/pkg/pipeline"
	"github.com/shashiranjanraj/ctxflow/pkg/result"
)

type action struct{}

// Action runs immediately around the action.
func Action() pipeline.Stage { return action{} }

func (action) Name() string { return "action_filter" }

func (action) Before(x *ctx.Context) (result.Result, bool) {
	logger.WithCtx(x.Context()).Debug("action filter", "param", x.Param("param"))
	return result.Result{}, false
}

func (action) After(x *ctx.Context, res result.Result) {
	logger.WithCtx(x.Context()).Debug("action filter observed result", "faulted", res.Faulted())
}

// Exception logs the fault the action filters unwound with.
func Exception() pipeline.ExceptionFilter {
	return pipeline.ExceptionFilterFunc(func(x *ctx.Context, err error) {
		rc, _ := models.CurrentRequestContext(x)
		param := ""
		if rc != nil {
			param = rc.Param
		}
		logger.WithCtx(x.Context()).Warn("exception filter", "error", err.Error(), "param", param)
	})
}
