package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shashiranjanraj/ctxflow/config"
	"github.com/shashiranjanraj/ctxflow/internal/server"
	"github.com/shashiranjanraj/ctxflow/pkg/logger"
)

// ctxflow serve: listen until interrupted.
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run", "start"},
	Short:   "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, cleanup, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = cleanup(context.WithoutCancel(ctx)) }()

		h := server.Mux(a.Handler(), config.MetricsEnabled())
		return server.Start(ctx, listenAddr(), h, nil)
	},
}

var demoParam string

// ctxflow demo: start the listener, call /hello/<param> once, print the
// response, shut down.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Serve, self-call /hello/<param> once, print the response and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a, cleanup, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = cleanup(context.WithoutCancel(ctx)) }()

		param := demoParam
		if param == "" {
			param = config.DemoParam()
		}

		ready := make(chan string, 1)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.Start(gctx, listenAddr(), server.Mux(a.Handler(), config.MetricsEnabled()), func(addr string) {
				ready <- addr
			})
		})
		g.Go(func() error {
			defer cancel()
			var addr string
			select {
			case addr = <-ready:
			case <-gctx.Done():
				return nil
			}

			status, body, err := server.Probe(gctx, "http://"+addr, "/hello/"+param)
			if err != nil {
				return err
			}
			logger.Info("demo response", "status", status)
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", status, body)
			return nil
		})
		return g.Wait()
	},
}

func init() {
	demoCmd.Flags().StringVar(&demoParam, "param", "", "route parameter (default from DEMO_PARAM)")
}
