package routes

import (
	"github.com/shashiranjanraj/ctxflow/app/controllers"
	"github.com/shashiranjanraj/ctxflow/app/filters"
	"github.com/shashiranjanraj/ctxflow/app/middleware"
	"github.com/shashiranjanraj/ctxflow/app/models"
	"github.com/shashiranjanraj/ctxflow/app/services"
	"github.com/shashiranjanraj/ctxflow/pkg/container"
	fw "github.com/shashiranjanraj/ctxflow/pkg/middleware"
	"github.com/shashiranjanraj/ctxflow/pkg/router"
)

// Bind registers the per-request services.
func Bind(c *container.Container) {
	models.RegisterRequestContext(c)
	services.Register(c)
}

// Register wires the hello pipeline:
//
//	Global → AccessLog → Route → Action filter → HelloController.Get
func Register(r *router.Router) {
	hello := controllers.NewHelloController()

	r.Use(middleware.Global(), fw.AccessLog())
	r.Filter(filters.Action())
	r.OnException(filters.Exception())

	r.Get("/hello/{param}", "hello", hello.Get, middleware.Route())
}
