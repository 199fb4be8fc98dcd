package middleware_test

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/shashiranjanraj/ctxflow/pkg/correlation"
	"github.com/shashiranjanraj/ctxflow/pkg/ctx"
	"github.com/shashiranjanraj/ctxflow/pkg/logger"
	"github.com/shashiranjanraj/ctxflow/pkg/metrics"
	"github.com/shashiranjanraj/ctxflow/pkg/middleware"
	"github.com/shashiranjanraj/ctxflow/pkg/pipeline"
	"github.com/shashiranjanraj/ctxflow/pkg/result"
	"github.com/shashiranjanraj/ctxflow/pkg/router"
)

func serve(t *testing.T, r *router.Router, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	r := router.New(router.Options{Logger: log})
	r.Use(middleware.AccessLog())
	r.Get("/hello/{param}", "hello", func(*ctx.Context) result.Result { return result.OK("hi") })
	r.Get("/fail", "fail", func(*ctx.Context) result.Result { return result.Fault(errors.New("kaput")) })

	serve(t, r, http.MethodGet, "/hello/abc")
	out := buf.String()
	assert.Contains(t, out, "level=INFO msg=request")
	assert.Contains(t, out, "path=/hello/abc")
	assert.Contains(t, out, "route=/hello/{param}")
	assert.Contains(t, out, "status=200")

	buf.Reset()
	serve(t, r, http.MethodGet, "/fail")
	assert.Contains(t, buf.String(), "level=WARN msg=request")
	assert.Contains(t, buf.String(), "error=kaput")
}

func TestMetricsStage(t *testing.T) {
	r := router.New(router.Options{})
	r.Use(middleware.Metrics())
	r.Get("/items/{id}", "items", func(*ctx.Context) result.Result { return result.OK(nil) })

	before := testutil.ToFloat64(metrics.RequestTotal.WithLabelValues(http.MethodGet, "/items/{id}", "200"))
	unmatched := testutil.ToFloat64(metrics.RequestTotal.WithLabelValues(http.MethodGet, "unmatched", "404"))

	serve(t, r, http.MethodGet, "/items/1")
	serve(t, r, http.MethodGet, "/items/2")
	serve(t, r, http.MethodGet, "/nowhere")

	assert.Equal(t, before+2, testutil.ToFloat64(metrics.RequestTotal.WithLabelValues(http.MethodGet, "/items/{id}", "200")))
	assert.Equal(t, unmatched+1, testutil.ToFloat64(metrics.RequestTotal.WithLabelValues(http.MethodGet, "unmatched", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.RequestInFlight))
}

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(t.Context())
	})
	return sr
}

func TestTracingSuccess(t *testing.T) {
	sr := withRecorder(t)

	var inner trace.SpanContext
	r := router.New(router.Options{})
	r.Use(middleware.Tracing("test"))
	r.Get("/hello/{param}", "hello", func(x *ctx.Context) result.Result {
		inner = trace.SpanContextFromContext(x.Context())
		return result.OK(nil)
	})

	serve(t, r, http.MethodGet, "/hello/test")

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /hello/{param}", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.True(t, inner.IsValid())
	assert.Equal(t, spans[0].SpanContext().TraceID(), inner.TraceID())
}

func TestTracingFault(t *testing.T) {
	sr := withRecorder(t)

	r := router.New(router.Options{})
	r.Use(middleware.Tracing("test"), pipeline.Hooks{StageName: "corr", Pre: func(x *ctx.Context) {
		x.WithContext(correlation.WithValue(x.Context(), "cid-42"))
	}})
	r.Get("/fail", "fail", func(*ctx.Context) result.Result { return result.Fault(errors.New("kaput")) })

	serve(t, r, http.MethodGet, "/fail")

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "kaput", spans[0].Status().Description)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "cid-42", attrs["correlation.id"])
	assert.Equal(t, "500", attrs["http.response.status_code"])
	assert.Equal(t, "/fail", attrs["http.route"])
}

func TestStagesUseRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	r := router.New(router.Options{})
	r.Use(pipeline.Hooks{StageName: "tagger", Pre: func(x *ctx.Context) {
		x.WithContext(logger.InjectLogger(x.Context(), log.With("correlation_id", "abc")))
	}}, middleware.AccessLog())
	r.Get("/", "home", func(*ctx.Context) result.Result { return result.OK(nil) })

	serve(t, r, http.MethodGet, "/")
	assert.Contains(t, buf.String(), "correlation_id=abc")
}
