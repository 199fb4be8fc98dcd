package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/shashiranjanraj/ctxflow/pkg/telemetry"
)

func TestNoopWithoutEndpoint(t *testing.T) {
	p, err := telemetry.NewProvider(context.Background(), telemetry.Config{ServiceName: "test"})
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Shutdown(context.Background()))

	_, span := telemetry.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}

func TestExporterReceivesSpans(t *testing.T) {
	exp := keepingExporter{tracetest.NewInMemoryExporter()}
	p, err := telemetry.NewProvider(context.Background(), telemetry.Config{
		ServiceName: "ctxflow-test",
		Exporter:    exp,
	})
	require.NoError(t, err)
	assert.True(t, p.Enabled())

	_, span := telemetry.Tracer("test").Start(context.Background(), "unit")
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "unit", spans[0].Name)
	assert.Contains(t, spans[0].Resource.String(), "ctxflow-test")
}

// keepingExporter keeps spans across Shutdown so they can be read after the
// provider has flushed.
type keepingExporter struct {
	*tracetest.InMemoryExporter
}

func (keepingExporter) Shutdown(context.Context) error { return nil }
