package pipeline

import (
	"log/slog"
	"net/http"

	"github.com/shashiranjanraj/ctxflow/pkg/codec"
	"github.com/shashiranjanraj/ctxflow/pkg/container"
	"github.com/shashiranjanraj/ctxflow/pkg/correlation"
	"github.com/shashiranjanraj/ctxflow/pkg/ctx"
	"github.com/shashiranjanraj/ctxflow/pkg/logger"
	"github.com/shashiranjanraj/ctxflow/pkg/response"
	"github.com/shashiranjanraj/ctxflow/pkg/result"
)

// HostOptions configures the outermost fault boundary.
type HostOptions struct {
	Container *container.Container
	Codec     codec.Codec
	Reporter  Reporter
	Logger    *slog.Logger
}

// Host is the outermost handler. Per request it:
//
//  1. creates the exchange and its dependency scope,
//  2. runs the global stages around next,
//  3. reports a fault nobody reported yet,
//  4. writes the result through the codec,
//  5. closes the scope and releases the exchange.
type Host struct {
	opts   HostOptions
	stages []Stage
	next   http.Handler
}

// NewHost wraps next with stages. next is expected to record its result on
// the exchange (see Dispatcher.Endpoint).
func NewHost(opts HostOptions, next http.Handler, stages ...Stage) *Host {
	if opts.Container == nil {
		opts.Container = container.New()
	}
	if opts.Codec == nil {
		opts.Codec = codec.JSON()
	}
	if opts.Logger == nil {
		opts.Logger = logger.L
	}
	return &Host{
		opts:   opts,
		stages: append([]Stage(nil), stages...),
		next:   next,
	}
}

func (h *Host) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	x := ctx.New(w, r)
	x.UseCodec(h.opts.Codec)

	scope := h.opts.Container.NewScope()
	x.AttachScope(scope)
	x.WithContext(logger.InjectLogger(x.Context(), h.opts.Logger))
	if h.opts.Reporter != nil {
		x.WithContext(WithReporter(x.Context(), h.opts.Reporter))
	}
	x.Attach()

	defer func() {
		scope.Close()
		x.Release()
	}()

	res := Run(x, h.stages, func(x *ctx.Context) result.Result {
		h.next.ServeHTTP(x.W, x.R)
		return x.Result()
	})

	ReportOnce(x, res)

	cid := correlation.FromCtx(x.Context())
	if err := response.Write(x.W, x.Codec(), res, cid); err != nil {
		logger.WithCtx(x.Context()).Error("write response", "error", err.Error())
	}
}
