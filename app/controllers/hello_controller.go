package controllers

import (
	"errors"
	"fmt"

	"github.com/shashiranjanraj/ctxflow/app/models"
	"github.com/shashiranjanraj/ctxflow/app/services"
	"github.com/shashiranjanraj/ctxflow/pkg/ctx"
	"github.com/shashiranjanraj/ctxflow/pkg/logger"
	"github.com/shashiranjanraj/ctxflow/pkg/result"
)

// ErrDeliberateFault is what every hello request ends with.
var ErrDeliberateFault = errors.New("hello: deliberate fault")

type HelloController struct{}

func NewHelloController() *HelloController {
	return &HelloController{}
}

// Get handles GET /hello/{param}. It copies the parameter into the request
// context, the exchange bag and the side table, calls the greeter, and then
// faults regardless of the outcome.
func (h *HelloController) Get(x *ctx.Context) result.Result {
	param := x.Param("param")
	log := logger.WithCtx(x.Context())

	rc, err := models.CurrentRequestContext(x)
	if err != nil {
		return result.Fault(fmt.Errorf("resolve request context: %w", err))
	}
	rc.Param = param
	x.Set(models.AmbientParamKey, param)
	models.SetParam(x, param)

	greeter, err := ctx.Resolve[services.Greeter](x, services.GreeterKey)
	if err != nil {
		return result.Fault(fmt.Errorf("resolve greeter: %w", err))
	}
	greeting, err := greeter.Greet(x.Context(), param)
	if err != nil {
		log.Warn("greeting failed", "error", err.Error())
	} else {
		log.Info("greeting", "message", greeting)
	}

	return result.Fault(ErrDeliberateFault)
}
