package models

import (
	"github.com/shashiranjanraj/ctxflow/pkg/container"
	"github.com/shashiranjanraj/ctxflow/pkg/ctx"
)

const (
	// RequestContextKey is the container key of the per-request RequestContext.
	RequestContextKey = "request.context"
	// AmbientParamKey is the exchange bag key the route parameter is copied to.
	AmbientParamKey = "myparam"
)

// RequestContext is the per-request state shared through the request scope.
// The global stage fills CorrelationID, the hello action fills Param.
type RequestContext struct {
	Param         string
	CorrelationID string
}

// RegisterRequestContext binds RequestContext with a per-request lifetime.
func RegisterRequestContext(c *container.Container) {
	c.Scoped(RequestContextKey, func(container.Resolver) any {
		return &RequestContext{}
	})
}

// CurrentRequestContext resolves the exchange's RequestContext.
func CurrentRequestContext(x *ctx.Context) (*RequestContext, error) {
	return ctx.Resolve[*RequestContext](x, RequestContextKey)
}
