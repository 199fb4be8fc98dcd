package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/shashiranjanraj/ctxflow/app/models"
	"github.com/shashiranjanraj/ctxflow/pkg/container"
	"github.com/shashiranjanraj/ctxflow/pkg/logger"
	"github.com/shashiranjanraj/ctxflow/pkg/metrics"
)

type intercepted struct {
	next Greeter
	rc   *models.RequestContext
	log  *slog.Logger
}

// Intercept wraps next so each call logs the request's correlation id
// before delegating. The result and error of next are returned unchanged.
// A nil log falls back to the logger carried by the call's context.
func Intercept(next Greeter, rc *models.RequestContext, log *slog.Logger) Greeter {
	return &intercepted{next: next, rc: rc, log: log}
}

func (i *intercepted) Greet(ctx context.Context, name string) (string, error) {
	log := i.log
	if log == nil {
		log = logger.WithCtx(ctx)
	}

	correlationID := ""
	if i.rc != nil {
		correlationID = i.rc.CorrelationID
	}
	log.Info("intercepting", "method", "Greeter.Greet", "correlation_id", correlationID)

	start := time.Now()
	out, err := i.next.Greet(ctx, name)

	metrics.RecordIntercept("Greeter.Greet", err)
	log.Debug("intercepted", "method", "Greeter.Greet", "duration", time.Since(start).String(), "failed", err != nil)
	return out, err
}

// Register binds the intercepted Greeter per request: each scope gets one
// decorator bound to that scope's RequestContext.
func Register(c *container.Container) {
	c.Singleton("greeter.impl", func(container.Resolver) any {
		return NewGreeter()
	})
	c.Scoped(GreeterKey, func(r container.Resolver) any {
		impl, err := container.Resolve[Greeter](r, "greeter.impl")
		if err != nil {
			panic(err)
		}
		rc, err := container.Resolve[*models.RequestContext](r, models.RequestContextKey)
		if err != nil {
			panic(err)
		}
		return Intercept(impl, rc, nil)
	})
}
