package pipeline

import (
	"context"
	"net/http"

	"github.com/shashiranjanraj/ctxflow/pkg/ctx"
	"github.com/shashiranjanraj/ctxflow/pkg/logger"
	"github.com/shashiranjanraj/ctxflow/pkg/result"
)

// ExceptionFilter observes a fault after the action filters unwound. It
// cannot replace the fault.
type ExceptionFilter interface {
	OnException(x *ctx.Context, err error)
}

// ExceptionFilterFunc adapts a function to ExceptionFilter.
type ExceptionFilterFunc func(x *ctx.Context, err error)

func (f ExceptionFilterFunc) OnException(x *ctx.Context, err error) { f(x, err) }

// Reporter observes a request that ended in a fault.
type Reporter interface {
	Report(x *ctx.Context, res result.Result)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(x *ctx.Context, res result.Result)

func (f ReporterFunc) Report(x *ctx.Context, res result.Result) { f(x, res) }

type reporterKey struct{}

// WithReporter stores rep in c.
func WithReporter(c context.Context, rep Reporter) context.Context {
	return context.WithValue(c, reporterKey{}, rep)
}

// ReporterFrom returns the reporter stored in c.
func ReporterFrom(c context.Context) (Reporter, bool) {
	if c == nil {
		return nil, false
	}
	rep, ok := c.Value(reporterKey{}).(Reporter)
	return rep, ok && rep != nil
}

// ReportOnce hands res to the request's reporter unless the exchange has
// already been reported. A panicking reporter is logged and swallowed.
func ReportOnce(x *ctx.Context, res result.Result) bool {
	if !res.Faulted() {
		return false
	}
	rep, ok := ReporterFrom(x.Context())
	if !ok || !x.MarkReported() {
		return false
	}
	if err := guard(func() { rep.Report(x, res) }); err != nil {
		logger.WithCtx(x.Context()).Error("fault reporter failed", "error", err.Error())
	}
	return true
}

// Dispatcher runs the controller-adjacent part of the pipeline: action
// filters around the action, then exception filters and the fault reporter.
type Dispatcher struct {
	filters    []Stage
	exceptions []ExceptionFilter
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Filter appends action filters. The first one registered is outermost.
func (d *Dispatcher) Filter(filters ...Stage) {
	d.filters = append(d.filters, filters...)
}

// OnException appends exception filters.
func (d *Dispatcher) OnException(filters ...ExceptionFilter) {
	d.exceptions = append(d.exceptions, filters...)
}

// Invoke runs action inside the action filters.
func (d *Dispatcher) Invoke(x *ctx.Context, action Action) result.Result {
	res := Run(x, d.filters, action)
	if !res.Faulted() {
		return res
	}

	for _, f := range d.exceptions {
		if err := guard(func() { f.OnException(x, res.Err) }); err != nil {
			logger.WithCtx(x.Context()).Error("exception filter failed", "error", err.Error())
		}
	}

	ReportOnce(x, res)
	return res
}

// Endpoint builds the route handler for action. stages run between the
// global stages and the action filters. The handler records its result on
// the exchange found in the request, creating a standalone one if the
// request did not pass through a Host.
func (d *Dispatcher) Endpoint(action Action, stages ...Stage) http.Handler {
	stages = append([]Stage(nil), stages...)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		x, ok := ctx.From(r)
		if !ok {
			x = ctx.New(w, r)
		}
		x.R = r

		res := Run(x, stages, func(x *ctx.Context) result.Result {
			return d.Invoke(x, action)
		})
		x.SetResult(res)
	})
}
