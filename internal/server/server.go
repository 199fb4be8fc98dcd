// Package server owns the listener lifecycle: bind, serve, graceful
// shutdown, and the one-shot self probe used by the demo command.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shashiranjanraj/ctxflow/pkg/logger"
	"github.com/shashiranjanraj/ctxflow/pkg/metrics"
)

const shutdownTimeout = 5 * time.Second

// Mux mounts the application handler at "/" and, when withMetrics is set,
// the Prometheus scrape endpoint at "/metrics" outside the pipeline.
func Mux(handler http.Handler, withMetrics bool) http.Handler {
	mux := http.NewServeMux()
	if withMetrics {
		mux.Handle("/metrics", metrics.Handler())
	}
	mux.Handle("/", handler)
	return mux
}

// Start binds addr and serves handler until ctx is cancelled, then shuts
// down gracefully. ready, if not nil, is called with the bound address once
// the listener accepts connections.
func Start(ctx context.Context, addr string, handler http.Handler, ready func(addr string)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("ctxflow listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		logger.Info("ctxflow shutting down", "addr", ln.Addr().String())
		return srv.Shutdown(shutdownCtx)
	})

	if ready != nil {
		ready(ln.Addr().String())
	}
	return g.Wait()
}

// Probe issues one GET to baseURL+path and returns the status and body.
func Probe(ctx context.Context, baseURL, path string) (int, string, error) {
	url := strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", fmt.Errorf("probe %s: %w", url, err)
	}
	// One-shot: no idle connection is kept.
	req.Close = true

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("probe %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("probe %s: read body: %w", url, err)
	}
	return resp.StatusCode, string(body), nil
}
