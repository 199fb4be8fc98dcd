package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/shashiranjanraj/ctxflow/app/reporting"
	"github.com/shashiranjanraj/ctxflow/app/routes"
	"github.com/shashiranjanraj/ctxflow/config"
	"github.com/shashiranjanraj/ctxflow/pkg/app"
	"github.com/shashiranjanraj/ctxflow/pkg/codec"
	"github.com/shashiranjanraj/ctxflow/pkg/logger"
	"github.com/shashiranjanraj/ctxflow/pkg/report"
	"github.com/shashiranjanraj/ctxflow/pkg/telemetry"
)

var addrFlag string

func listenAddr() string {
	if addrFlag != "" {
		return addrFlag
	}
	return config.AppAddr()
}

// bootstrap builds the application from config. The returned cleanup
// flushes traces and closes the report sink connection.
func bootstrap(ctx context.Context) (*app.Application, func(context.Context) error, error) {
	if err := config.Load(); err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	cd, err := codec.ByName(config.Codec())
	if err != nil {
		return nil, nil, err
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		ServiceName: "ctxflow",
		Environment: config.AppEnv(),
		Endpoint:    config.TracingEndpoint(),
	})
	if err != nil {
		return nil, nil, err
	}
	cleanups := []func(context.Context) error{tp.Shutdown}

	var sinks []report.Sink
	if addr := config.ReportRedisAddr(); addr != "" {
		rdb := report.Dial(addr)
		sinks = append(sinks, report.NewRedisStream(rdb, config.ReportStream(), 10000))
		cleanups = append(cleanups, func(context.Context) error { return rdb.Close() })
		logger.Info("fault reports mirrored to redis", "addr", addr, "stream", config.ReportStream())
	}

	a := app.New().
		Bind(routes.Bind).
		Routes(routes.Register).
		Reporter(reporting.New(sinks...)).
		Codec(cd).
		Tracing(tp.Enabled()).
		Metrics(config.MetricsEnabled())

	cleanup := func(ctx context.Context) error {
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			errs = append(errs, cleanups[i](ctx))
		}
		return errors.Join(errs...)
	}
	return a, cleanup, nil
}
