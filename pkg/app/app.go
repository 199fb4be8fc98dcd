// Package app assembles a ctxflow application: container bindings, routes,
// the fault reporter and the framework stages.
//
//	h := app.New().
//	    Bind(routes.Bind).
//	    Routes(routes.Register).
//	    Reporter(reporting.New()).
//	    Handler()
package app

import (
	"log/slog"
	"net/http"

	"github.com/shashiranjanraj/ctxflow/pkg/codec"
	"github.com/shashiranjanraj/ctxflow/pkg/container"
	"github.com/shashiranjanraj/ctxflow/pkg/pipeline"
	"github.com/shashiranjanraj/ctxflow/pkg/router"
)

// Application is the central configuration object. Build one with New(),
// attach bindings and routes, then call Handler().
type Application struct {
	bindFns   []func(*container.Container)
	routesFns []func(*router.Router)
	reporter  pipeline.Reporter
	codec     codec.Codec
	logger    *slog.Logger
	tracing   bool
	metrics   bool
}

// New creates an Application with metrics enabled and tracing disabled.
func New() *Application {
	return &Application{metrics: true}
}

// Bind registers a container-binding callback. Callbacks run in order.
func (a *Application) Bind(fn func(*container.Container)) *Application {
	a.bindFns = append(a.bindFns, fn)
	return a
}

// Routes registers a route-registration callback. You may call Routes()
// multiple times; all callbacks are executed in order.
func (a *Application) Routes(fn func(*router.Router)) *Application {
	a.routesFns = append(a.routesFns, fn)
	return a
}

// Reporter sets the terminal fault reporter.
func (a *Application) Reporter(rep pipeline.Reporter) *Application {
	a.reporter = rep
	return a
}

// Codec sets the body codec. Defaults to JSON.
func (a *Application) Codec(c codec.Codec) *Application {
	a.codec = c
	return a
}

// Logger sets the base logger. Defaults to logger.L.
func (a *Application) Logger(l *slog.Logger) *Application {
	a.logger = l
	return a
}

// Tracing toggles the tracing stage.
func (a *Application) Tracing(on bool) *Application {
	a.tracing = on
	return a
}

// Metrics toggles the request metrics stage.
func (a *Application) Metrics(on bool) *Application {
	a.metrics = on
	return a
}

// Router builds the configured router.
func (a *Application) Router() *router.Router {
	return buildRouter(a)
}

// Handler builds the HTTP handler.
func (a *Application) Handler() http.Handler {
	return a.Router().Handler()
}
