package report_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/ctxflow/pkg/correlation"
	"github.com/shashiranjanraj/ctxflow/pkg/ctx"
	"github.com/shashiranjanraj/ctxflow/pkg/logger"
	"github.com/shashiranjanraj/ctxflow/pkg/metrics"
	"github.com/shashiranjanraj/ctxflow/pkg/report"
	"github.com/shashiranjanraj/ctxflow/pkg/result"
)

var errDeliberate = errors.New("deliberate")

func exchange(t *testing.T, buf *bytes.Buffer) *ctx.Context {
	t.Helper()
	x := ctx.New(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/hello/test", nil))
	log := slog.New(slog.NewTextHandler(buf, nil))
	c := logger.InjectLogger(x.Context(), log)
	x.WithContext(correlation.WithValue(c, "cid-1"))
	x.Set("myparam", "test")
	return x
}

func bag(x *ctx.Context) (string, bool) {
	v, ok := x.Get("myparam")
	s, _ := v.(string)
	return s, ok
}

func TestReportLogsEveryChannel(t *testing.T) {
	var buf bytes.Buffer
	x := exchange(t, &buf)

	rep := report.New(
		report.WithChannel("ambient", bag),
		report.WithChannel("side_table", func(*ctx.Context) (string, bool) { return "", false }),
		report.WithChannel("di", func(*ctx.Context) (string, bool) { panic("scope closed") }),
	)
	rep.Report(x, result.Fault(errDeliberate))

	out := buf.String()
	assert.Contains(t, out, `level=ERROR msg="unhandled fault"`)
	assert.Contains(t, out, "correlation_id=cid-1")
	assert.Contains(t, out, "ambient=test")
	assert.Contains(t, out, "side_table=<absent>")
	assert.Contains(t, out, "di=<absent>")
	assert.Contains(t, out, "error=deliberate")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("unhandled fault")))
}

func TestBuild(t *testing.T) {
	var buf bytes.Buffer
	x := exchange(t, &buf)

	rep := report.New(
		report.WithChannel("ambient", bag),
		report.WithChannel("broken", func(*ctx.Context) (string, bool) { panic("nope") }),
		report.WithChannel("nil", nil),
	).Build(x, result.Fault(errDeliberate))

	assert.Equal(t, "cid-1", rep.CorrelationID)
	assert.Equal(t, x.ID(), rep.ExchangeID)
	assert.Equal(t, http.StatusInternalServerError, rep.Status)
	assert.Equal(t, "deliberate", rep.Error)
	assert.Equal(t, "/hello/test", rep.Path)

	v, ok := rep.Lookup("ambient")
	require.True(t, ok)
	assert.Equal(t, report.Value{Channel: "ambient", Value: "test", Present: true}, v)

	v, ok = rep.Lookup("broken")
	require.True(t, ok)
	assert.False(t, v.Present)
	assert.Equal(t, "nope", v.Error)

	v, _ = rep.Lookup("nil")
	assert.False(t, v.Present)

	_, ok = rep.Lookup("missing")
	assert.False(t, ok)
}

func TestCustomCorrelation(t *testing.T) {
	var buf bytes.Buffer
	x := exchange(t, &buf)

	rep := report.New(report.WithCorrelation(func(*ctx.Context) (string, bool) { return "from-scope", true })).
		Build(x, result.Fault(errDeliberate))
	assert.Equal(t, "from-scope", rep.CorrelationID)
}

func TestSinkErrorsAreLoggedNotRaised(t *testing.T) {
	var buf bytes.Buffer
	x := exchange(t, &buf)

	var mu sync.Mutex
	var got []report.Report
	ok := report.SinkFunc("memory", func(_ context.Context, r report.Report) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, r)
		return nil
	})
	failing := report.SinkFunc("failing", func(context.Context, report.Report) error {
		return errors.New("unreachable")
	})

	assert.NotPanics(t, func() {
		report.New(report.WithSink(failing), report.WithSink(ok), report.WithSink(nil)).Report(x, result.Fault(errDeliberate))
	})

	require.Len(t, got, 1)
	assert.Equal(t, "cid-1", got[0].CorrelationID)
	assert.Contains(t, buf.String(), "sink=failing")
	assert.Contains(t, buf.String(), "error=unreachable")
}

func TestPanickingSinkDoesNotStopOthers(t *testing.T) {
	var buf bytes.Buffer
	x := exchange(t, &buf)

	mr := miniredis.RunT(t)
	client := report.Dial(mr.Addr())
	t.Cleanup(func() { _ = client.Close() })

	broken := report.SinkFunc("broken", func(context.Context, report.Report) error {
		panic("sink down")
	})
	var ran bool
	after := report.SinkFunc("after", func(context.Context, report.Report) error {
		ran = true
		return nil
	})

	before := testutil.ToFloat64(metrics.SinkErrors.WithLabelValues("broken"))
	assert.NotPanics(t, func() {
		report.New(
			report.WithSink(broken),
			report.WithSink(after),
			report.WithSink(report.NewRedisStream(client, "faults", 0)),
		).Report(x, result.Fault(errDeliberate))
	})

	assert.True(t, ran)
	n, err := client.XLen(context.Background(), "faults").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SinkErrors.WithLabelValues("broken")))
	assert.Contains(t, buf.String(), "sink=broken")
	assert.Contains(t, buf.String(), "sink panicked: sink down")
}

func TestRedisStreamSink(t *testing.T) {
	mr := miniredis.RunT(t)
	client := report.Dial(mr.Addr())
	t.Cleanup(func() { _ = client.Close() })

	var buf bytes.Buffer
	x := exchange(t, &buf)

	sink := report.NewRedisStream(client, "ctxflow:faults", 0)
	assert.Equal(t, "redis_stream", sink.Name())
	assert.Equal(t, "ctxflow:faults", sink.Stream())

	report.New(
		report.WithChannel("ambient", bag),
		report.WithChannel("side_table", func(*ctx.Context) (string, bool) { return "", false }),
		report.WithSink(sink),
	).Report(x, result.Fault(errDeliberate))

	msgs, err := client.XRange(context.Background(), "ctxflow:faults", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	values := msgs[0].Values
	assert.Equal(t, "cid-1", values["correlation_id"])
	assert.Equal(t, "test", values["ch.ambient"])
	assert.Equal(t, "500", values["status"])
	assert.Equal(t, "deliberate", values["error"])
	assert.NotContains(t, values, "ch.side_table")
}

func TestRedisStreamSinkFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := report.Dial(mr.Addr())
	t.Cleanup(func() { _ = client.Close() })
	mr.SetError("READONLY")

	err := report.NewRedisStream(client, "s", 10).Publish(context.Background(), report.Report{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publishing to stream s")
}
