// Package router maps routes onto the pipeline.
//
// Global stages wrap every request, before route matching. Route stages are
// given per route (or per group) and run inside the global stages and
// outside the action filters:
//
//	r := router.New(router.Options{Container: c, Reporter: rep})
//	r.Use(globalStage)
//	r.Filter(actionFilter)
//	r.Get("/hello/{param}", "hello", ctrl.Get, routeStage)
//	http.ListenAndServe(addr, r.Handler())
package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/shashiranjanraj/ctxflow/pkg/ctx"
	"github.com/shashiranjanraj/ctxflow/pkg/pipeline"
	"github.com/shashiranjanraj/ctxflow/pkg/result"
)

// Middleware is a raw net/http middleware. It runs inside the global stages
// and before route matching, and must not write the response itself.
type Middleware func(http.Handler) http.Handler

// Options configures the host boundary.
type Options = pipeline.HostOptions

// RouteInfo describes one registered route.
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

var (
	// ErrRouteNotFound is returned by URL for unknown names.
	ErrRouteNotFound = errors.New("router: route not found")
	// ErrMissingParams is returned by URL when a placeholder is left unfilled.
	ErrMissingParams = errors.New("router: missing route parameters")
)

type Router struct {
	mux        chi.Router
	opts       Options
	dispatcher *pipeline.Dispatcher

	mu     sync.RWMutex
	global []pipeline.Stage
	routes []RouteInfo
	names  map[string]string

	once    sync.Once
	handler http.Handler
}

type Group struct {
	router *Router
	prefix string
	stages []pipeline.Stage
}

func New(opts Options) *Router {
	r := &Router{
		mux:        chi.NewRouter(),
		opts:       opts,
		dispatcher: pipeline.NewDispatcher(),
		names:      make(map[string]string),
	}
	r.mux.NotFound(r.dispatcher.Endpoint(func(x *ctx.Context) result.Result {
		return result.New(http.StatusNotFound, "route not found")
	}).ServeHTTP)
	r.mux.MethodNotAllowed(r.dispatcher.Endpoint(func(x *ctx.Context) result.Result {
		return result.New(http.StatusMethodNotAllowed, "method not allowed")
	}).ServeHTTP)
	return r
}

// Handler returns the host wrapping the router. It is built once; stages
// registered with Use afterwards are ignored.
func (r *Router) Handler() http.Handler {
	r.once.Do(func() {
		r.mu.RLock()
		global := append([]pipeline.Stage(nil), r.global...)
		r.mu.RUnlock()

		inner := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			// A caller-owned route context is never reset by chi, so the
			// captured parameters stay readable after routing returns.
			rctx := chi.NewRouteContext()
			if x, ok := ctx.From(req); ok {
				x.WithContext(context.WithValue(x.Context(), chi.RouteCtxKey, rctx))
				req = x.R
			} else {
				req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
			}
			r.mux.ServeHTTP(w, req)
		})
		r.handler = pipeline.NewHost(r.opts, inner, global...)
	})
	return r.handler
}

// Use appends global stages. The first one registered is outermost.
func (r *Router) Use(stages ...pipeline.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = append(r.global, stages...)
}

// UseMiddleware appends raw middleware. It must be called before any route
// is registered.
func (r *Router) UseMiddleware(middlewares ...Middleware) {
	for _, mw := range middlewares {
		r.mux.Use(mw)
	}
}

// Filter appends action filters shared by every route.
func (r *Router) Filter(filters ...pipeline.Stage) {
	r.dispatcher.Filter(filters...)
}

// OnException appends exception filters shared by every route.
func (r *Router) OnException(filters ...pipeline.ExceptionFilter) {
	r.dispatcher.OnException(filters...)
}

func (r *Router) Group(prefix string, stages ...pipeline.Stage) *Group {
	return &Group{
		router: r,
		prefix: normalizePath(prefix),
		stages: append([]pipeline.Stage(nil), stages...),
	}
}

func (r *Router) Get(path, name string, action pipeline.Action, stages ...pipeline.Stage) {
	r.mount(http.MethodGet, normalizePath(path), name, action, stages)
}

func (r *Router) Post(path, name string, action pipeline.Action, stages ...pipeline.Stage) {
	r.mount(http.MethodPost, normalizePath(path), name, action, stages)
}

func (r *Router) Path(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path, ok := r.names[name]
	return path, ok
}

func (r *Router) URL(name string, params map[string]string) (string, error) {
	path, ok := r.Path(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrRouteNotFound, name)
	}

	for key, value := range params {
		path = strings.ReplaceAll(path, "{"+key+"}", value)
	}

	if strings.Contains(path, "{") {
		return "", fmt.Errorf("%w: %q", ErrMissingParams, name)
	}

	return path, nil
}

// Routes lists registered routes sorted by path, then method.
func (r *Router) Routes() []RouteInfo {
	r.mu.RLock()
	out := append([]RouteInfo(nil), r.routes...)
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

func (r *Router) mount(method, fullPath, name string, action pipeline.Action, stages []pipeline.Stage) {
	r.mux.Method(method, fullPath, r.dispatcher.Endpoint(action, stages...))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, RouteInfo{Method: method, Path: fullPath, Name: name})
	if name != "" {
		r.names[name] = fullPath
	}
}

func (g *Group) Group(prefix string, stages ...pipeline.Stage) *Group {
	return &Group{
		router: g.router,
		prefix: joinPath(g.prefix, prefix),
		stages: append(append([]pipeline.Stage(nil), g.stages...), stages...),
	}
}

func (g *Group) Get(path, name string, action pipeline.Action, stages ...pipeline.Stage) {
	g.mount(http.MethodGet, path, name, action, stages)
}

func (g *Group) Post(path, name string, action pipeline.Action, stages ...pipeline.Stage) {
	g.mount(http.MethodPost, path, name, action, stages)
}

func (g *Group) mount(method, path, name string, action pipeline.Action, stages []pipeline.Stage) {
	combined := append(append([]pipeline.Stage(nil), g.stages...), stages...)
	g.router.mount(method, joinPath(g.prefix, path), name, action, combined)
}

func joinPath(parts ...string) string {
	if len(parts) == 0 {
		return "/"
	}

	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.Trim(part, "/")
		if trimmed != "" {
			segments = append(segments, trimmed)
		}
	}

	if len(segments) == 0 {
		return "/"
	}

	return "/" + strings.Join(segments, "/")
}

func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	return joinPath(path)
}
