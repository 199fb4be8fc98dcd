package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/ctxflow/pkg/metrics"
)

func TestRecordIntercept(t *testing.T) {
	before := testutil.ToFloat64(metrics.InterceptedCalls.WithLabelValues("Test.Method", "error"))
	metrics.RecordIntercept("Test.Method", errors.New("x"))
	metrics.RecordIntercept("Test.Method", nil)

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.InterceptedCalls.WithLabelValues("Test.Method", "error")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.InterceptedCalls.WithLabelValues("Test.Method", "ok")), 1.0)
}

func TestObserveStage(t *testing.T) {
	metrics.ObserveStage("test-stage", "done", time.Now())
	assert.Positive(t, testutil.CollectAndCount(metrics.StageDuration, "ctxflow_pipeline_stage_duration_seconds"))
}

func TestHandlerExposesRegistry(t *testing.T) {
	metrics.FaultsReported.WithLabelValues("/hello/{param}").Inc()

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ctxflow_pipeline_faults_reported_total")
}
