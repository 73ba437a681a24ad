package obs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/noah-isme/backend-invoice/internal/obs"
)

func TestInitTracerExporters(t *testing.T) {
	shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{Exporter: "none"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, err = obs.InitTracer(context.Background(), obs.TracingConfig{Exporter: "zipkin"})
	require.ErrorContains(t, err, "unsupported tracing exporter")
}

func TestEndSpanRecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := obs.StartSpan(context.Background(), "invoice.mutate")
	obs.EndSpan(span, errors.New("lock busy"))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	require.Equal(t, "invoice.mutate", ended[0].Name())
	require.Equal(t, "lock busy", ended[0].Status().Description)
}
