// Package ctx provides the exchange: the paired request/response that flows
// through every pipeline stage.
//
// Besides the request and writer, an exchange carries:
//
//   - an ambient key/value bag (Set/Get) readable by any stage that holds the
//     exchange, without dependency-injection visibility;
//   - the request's dependency scope (Scope);
//   - the terminal Result produced by the action or a terminating stage;
//   - release hooks run by the host once the response has been written.
//
// Actions receive the exchange directly:
//
//	func Show(x *ctx.Context) result.Result {
//	    return result.OK(map[string]any{"id": x.Param("id")})
//	}
package ctx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shashiranjanraj/ctxflow/pkg/codec"
	"github.com/shashiranjanraj/ctxflow/pkg/container"
	"github.com/shashiranjanraj/ctxflow/pkg/result"
)

// ErrNoScope is returned when an exchange has no dependency scope attached.
var ErrNoScope = errors.New("ctx: exchange has no dependency scope")

// Context wraps a request/response pair. Exchanges are never pooled or
// reused: their identity keys side tables.
type Context struct {
	W http.ResponseWriter
	R *http.Request

	id    string
	scope *container.Scope
	codec codec.Codec

	mu    sync.RWMutex
	store map[string]any

	res       result.Result
	hasResult bool
	reported  bool

	releaseOnce sync.Once
	onRelease   []func()
}

// New creates an exchange for w and r.
func New(w http.ResponseWriter, r *http.Request) *Context {
	return &Context{
		W:     w,
		R:     r,
		id:    uuid.NewString(),
		store: make(map[string]any),
		codec: codec.JSON(),
	}
}

// ID uniquely identifies this exchange.
func (c *Context) ID() string { return c.id }

// ─── Request helpers ──────────────────────────────────────────────────────────

// Param returns a URL path parameter captured by the router
// (e.g. "/hello/{param}" → c.Param("param")).
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

// RoutePattern returns the matched route pattern, or "" before routing.
func (c *Context) RoutePattern() string {
	if rctx := chi.RouteContext(c.R.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

// Header returns the value of a request header.
func (c *Context) Header(key string) string {
	return c.R.Header.Get(key)
}

// Method returns the HTTP method of the request.
func (c *Context) Method() string { return c.R.Method }

// Path returns the request URL path.
func (c *Context) Path() string { return c.R.URL.Path }

// ClientIP returns the real client IP, respecting X-Forwarded-For.
func (c *Context) ClientIP() string {
	if fwd := c.R.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	ip := c.R.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// Context returns the underlying request context.
func (c *Context) Context() context.Context { return c.R.Context() }

// WithContext replaces the request's context for every stage further in.
func (c *Context) WithContext(ctx context.Context) {
	c.R = c.R.WithContext(ctx)
}

// SetHeader sets a response header.
func (c *Context) SetHeader(key, value string) {
	c.W.Header().Set(key, value)
}

// ─── Ambient bag ──────────────────────────────────────────────────────────────

// Set stores a value in the per-exchange bag.
func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	c.store[key] = val
	c.mu.Unlock()
}

// Get retrieves a value from the per-exchange bag.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	v, ok := c.store[key]
	c.mu.RUnlock()
	return v, ok
}

// GetString returns a string value from the bag, or "" if absent/wrong type.
func (c *Context) GetString(key string) string {
	v, _ := c.Get(key)
	s, _ := v.(string)
	return s
}

// ─── Dependency scope ─────────────────────────────────────────────────────────

// AttachScope binds the request's dependency scope to the exchange.
func (c *Context) AttachScope(s *container.Scope) {
	c.scope = s
}

// Scope returns the request's dependency scope, or nil.
func (c *Context) Scope() *container.Scope { return c.scope }

// Resolve looks key up in the exchange's scope.
func Resolve[T any](c *Context, key string) (T, error) {
	if c.scope == nil {
		var zero T
		return zero, ErrNoScope
	}
	return container.Resolve[T](c.scope, key)
}

// ─── Body codec ───────────────────────────────────────────────────────────────

// UseCodec sets the codec used for request and response bodies.
func (c *Context) UseCodec(cd codec.Codec) {
	if cd != nil {
		c.codec = cd
	}
}

// Codec returns the exchange's body codec.
func (c *Context) Codec() codec.Codec { return c.codec }

// Decode reads the request body into dest through the configured codec.
func (c *Context) Decode(dest any) error {
	if c.R.Body == nil || c.R.Body == http.NoBody {
		return fmt.Errorf("ctx: empty request body")
	}
	return c.codec.Decode(c.R.Body, dest)
}

// ─── Result ───────────────────────────────────────────────────────────────────

// SetResult records the terminal result for the exchange.
func (c *Context) SetResult(r result.Result) {
	c.res = r
	c.hasResult = true
}

// Result returns the recorded result, or a fault wrapping ErrNoResult.
func (c *Context) Result() result.Result {
	if !c.hasResult {
		return result.Fault(result.ErrNoResult)
	}
	return c.res
}

// MarkReported flags the exchange's fault as reported. It returns false if
// it had already been flagged, so callers can report exactly once.
func (c *Context) MarkReported() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reported {
		return false
	}
	c.reported = true
	return true
}

// Reported reports whether MarkReported has been called.
func (c *Context) Reported() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reported
}

// ─── Release ──────────────────────────────────────────────────────────────────

// OnRelease registers fn to run when the exchange is released. Hooks run in
// reverse registration order.
func (c *Context) OnRelease(fn func()) {
	c.mu.Lock()
	c.onRelease = append(c.onRelease, fn)
	c.mu.Unlock()
}

// Release runs the release hooks once.
func (c *Context) Release() {
	c.releaseOnce.Do(func() {
		c.mu.Lock()
		hooks := c.onRelease
		c.onRelease = nil
		c.mu.Unlock()

		for i := len(hooks) - 1; i >= 0; i-- {
			hooks[i]()
		}
	})
}

// ─── request context propagation ──────────────────────────────────────────────

type exchangeKey struct{}

// Attach stores c in its own request context so handlers further in can
// recover it with From.
func (c *Context) Attach() {
	c.WithContext(context.WithValue(c.Context(), exchangeKey{}, c))
}

// From returns the exchange attached to r.
func From(r *http.Request) (*Context, bool) {
	return FromContext(r.Context())
}

// FromContext returns the exchange stored in ctx.
func FromContext(ctx context.Context) (*Context, bool) {
	if ctx == nil {
		return nil, false
	}
	c, ok := ctx.Value(exchangeKey{}).(*Context)
	return c, ok && c != nil
}
