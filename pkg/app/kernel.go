package app

// pkg/app/kernel.go builds the router from the Application config. It has
// no imports of project-specific code; everything comes through the
// builder methods.

import (
	"github.com/shashiranjanraj/ctxflow/pkg/codec"
	"github.com/shashiranjanraj/ctxflow/pkg/container"
	"github.com/shashiranjanraj/ctxflow/pkg/logger"
	"github.com/shashiranjanraj/ctxflow/pkg/middleware"
	"github.com/shashiranjanraj/ctxflow/pkg/router"
)

func buildRouter(a *Application) *router.Router {
	c := container.New()
	for _, fn := range a.bindFns {
		fn(c)
	}

	log := a.logger
	if log == nil {
		log = logger.L
	}
	cd := a.codec
	if cd == nil {
		cd = codec.JSON()
	}

	r := router.New(router.Options{
		Container: c,
		Codec:     codec.Logged(cd, log),
		Reporter:  a.reporter,
		Logger:    log,
	})

	// Framework stages, outermost first:
	//  1. Tracing: the span covers every other stage
	//  2. Metrics: total latency as the client sees it
	if a.tracing {
		r.Use(middleware.Tracing("ctxflow"))
	}
	if a.metrics {
		r.Use(middleware.Metrics())
	}

	for _, fn := range a.routesFns {
		fn(r)
	}
	return r
}
