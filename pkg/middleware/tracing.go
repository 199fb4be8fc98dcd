package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/shashiranjanraj/ctxflow/pkg/correlation"
	"github.com/shashiranjanraj/ctxflow/pkg/ctx"
	"github.com/shashiranjanraj/ctxflow/pkg/pipeline"
	"github.com/shashiranjanraj/ctxflow/pkg/result"
	"github.com/shashiranjanraj/ctxflow/pkg/telemetry"
)

type tracing struct {
	tracer trace.Tracer
}

// Tracing opens a server span per request. Upstream W3C trace context is
// honoured. The span is renamed to the matched route once routing is done,
// and marked as an error when the request faulted or answered 5xx.
func Tracing(tracerName string) pipeline.Stage {
	return tracing{tracer: telemetry.Tracer(tracerName)}
}

func (tracing) Name() string { return "tracing" }

func (t tracing) Before(x *ctx.Context) (result.Result, bool) {
	c := otel.GetTextMapPropagator().Extract(x.Context(), propagation.HeaderCarrier(x.R.Header))
	c, _ = t.tracer.Start(c, x.Method()+" "+x.Path(),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", x.Method()),
			attribute.String("url.path", x.Path()),
		),
	)
	x.WithContext(c)
	return result.Result{}, false
}

func (tracing) After(x *ctx.Context, res result.Result) {
	span := trace.SpanFromContext(x.Context())
	defer span.End()

	if route := x.RoutePattern(); route != "" {
		span.SetName(x.Method() + " " + route)
		span.SetAttributes(attribute.String("http.route", route))
	}
	if id := correlation.FromCtx(x.Context()); id != "" {
		span.SetAttributes(attribute.String("correlation.id", id))
	}
	span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode()))

	switch {
	case res.Faulted():
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	case res.StatusCode() >= http.StatusInternalServerError:
		span.SetStatus(codes.Error, http.StatusText(res.StatusCode()))
	default:
		span.SetStatus(codes.Ok, "")
	}
}
