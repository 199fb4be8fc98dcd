// Package report implements the terminal fault reporter. It reads a fixed
// set of named channels back from a faulted exchange and reports them in one
// structured log line, then fans the report out to optional sinks.
//
//	rep := report.New(
//	    report.WithChannel("ambient", func(x *ctx.Context) (string, bool) {
//	        v, ok := x.Get("myparam")
//	        s, _ := v.(string)
//	        return s, ok
//	    }),
//	    report.WithSink(report.NewRedisStream(rdb, "ctxflow:faults", 1000)),
//	)
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shashiranjanraj/ctxflow/pkg/correlation"
	"github.com/shashiranjanraj/ctxflow/pkg/ctx"
	"github.com/shashiranjanraj/ctxflow/pkg/logger"
	"github.com/shashiranjanraj/ctxflow/pkg/metrics"
	"github.com/shashiranjanraj/ctxflow/pkg/result"
)

// Absent is logged for a channel whose read missed.
const Absent = "<absent>"

// ReadFunc reads one channel from the exchange. ok=false means the channel
// held no value.
type ReadFunc func(x *ctx.Context) (value string, ok bool)

type channel struct {
	name string
	read ReadFunc
}

// Value is one channel's outcome.
type Value struct {
	Channel string `json:"channel" yaml:"channel"`
	Value   string `json:"value,omitempty" yaml:"value,omitempty"`
	Present bool   `json:"present" yaml:"present"`
	// Error is set when the read itself failed.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report is what sinks receive.
type Report struct {
	CorrelationID string    `json:"correlation_id" yaml:"correlation_id"`
	ExchangeID    string    `json:"exchange_id" yaml:"exchange_id"`
	Method        string    `json:"method" yaml:"method"`
	Path          string    `json:"path" yaml:"path"`
	Route         string    `json:"route" yaml:"route"`
	Status        int       `json:"status" yaml:"status"`
	Error         string    `json:"error" yaml:"error"`
	Channels      []Value   `json:"channels" yaml:"channels"`
	At            time.Time `json:"at" yaml:"at"`
}

// Lookup returns the value recorded for the named channel.
func (r Report) Lookup(name string) (Value, bool) {
	for _, v := range r.Channels {
		if v.Channel == name {
			return v, true
		}
	}
	return Value{}, false
}

// Sink receives every report.
type Sink interface {
	Name() string
	Publish(ctx context.Context, r Report) error
}

type sinkFunc struct {
	name string
	fn   func(context.Context, Report) error
}

func (s sinkFunc) Name() string { return s.name }

func (s sinkFunc) Publish(c context.Context, r Report) error { return s.fn(c, r) }

// SinkFunc adapts fn to Sink.
func SinkFunc(name string, fn func(context.Context, Report) error) Sink {
	return sinkFunc{name: name, fn: fn}
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithChannel adds a channel. Channels are read and logged in the order
// they were added.
func WithChannel(name string, read ReadFunc) Option {
	return func(r *Reporter) { r.channels = append(r.channels, channel{name: name, read: read}) }
}

// WithSink adds a sink.
func WithSink(s Sink) Option {
	return func(r *Reporter) {
		if s != nil {
			r.sinks = append(r.sinks, s)
		}
	}
}

// WithCorrelation replaces how the correlation id is read. The default
// reads it from the request context.
func WithCorrelation(read ReadFunc) Option {
	return func(r *Reporter) { r.correlation = read }
}

// WithSinkTimeout bounds each sink publish.
func WithSinkTimeout(d time.Duration) Option {
	return func(r *Reporter) { r.sinkTimeout = d }
}

// Reporter is safe for concurrent use once built.
type Reporter struct {
	channels    []channel
	sinks       []Sink
	correlation ReadFunc
	sinkTimeout time.Duration
	now         func() time.Time
}

func New(opts ...Option) *Reporter {
	r := &Reporter{
		correlation: func(x *ctx.Context) (string, bool) {
			id := correlation.FromCtx(x.Context())
			return id, id != ""
		},
		sinkTimeout: 2 * time.Second,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Build reads every channel. It never panics: a read that panics is
// recorded as absent with its error.
func (r *Reporter) Build(x *ctx.Context, res result.Result) Report {
	rep := Report{
		ExchangeID: x.ID(),
		Method:     x.Method(),
		Path:       x.Path(),
		Route:      x.RoutePattern(),
		Status:     res.StatusCode(),
		At:         r.now(),
		Channels:   make([]Value, 0, len(r.channels)),
	}
	if res.Err != nil {
		rep.Error = res.Err.Error()
	}
	if cid := read("correlation", r.correlation, x); cid.Present {
		rep.CorrelationID = cid.Value
	}
	for _, ch := range r.channels {
		rep.Channels = append(rep.Channels, read(ch.name, ch.read, x))
	}
	return rep
}

// Report logs the fault with every channel and publishes it to the sinks.
// Sink failures are logged and counted, never returned.
func (r *Reporter) Report(x *ctx.Context, res result.Result) {
	rep := r.Build(x, res)
	log := logger.WithCtx(x.Context())

	route := rep.Route
	if route == "" {
		route = "unmatched"
	}
	metrics.FaultsReported.WithLabelValues(route).Inc()

	args := []any{
		"correlation_id", rep.CorrelationID,
		"route", rep.Route,
		"status", rep.Status,
		"error", rep.Error,
	}
	for _, v := range rep.Channels {
		val := v.Value
		if !v.Present {
			val = Absent
			metrics.ChannelMisses.WithLabelValues(v.Channel).Inc()
		}
		args = append(args, v.Channel, val)
	}
	log.Error("unhandled fault", args...)

	for _, s := range r.sinks {
		if err := r.publish(x.Context(), s, rep); err != nil {
			metrics.SinkErrors.WithLabelValues(s.Name()).Inc()
			log.Warn("fault report sink failed", "sink", s.Name(), "error", err.Error())
		}
	}
}

// publish runs one sink under the sink timeout. A sink panic is returned as
// an error.
func (r *Reporter) publish(parent context.Context, s Sink, rep Report) (err error) {
	c, cancel := context.WithTimeout(context.WithoutCancel(parent), r.sinkTimeout)
	defer cancel()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("sink panicked: %v", p)
		}
	}()
	return s.Publish(c, rep)
}

func read(name string, fn ReadFunc, x *ctx.Context) (v Value) {
	v.Channel = name
	if fn == nil {
		return v
	}
	defer func() {
		if p := recover(); p != nil {
			v = Value{Channel: name, Error: fmt.Sprint(p)}
		}
	}()
	v.Value, v.Present = fn(x)
	return v
}
