package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/mallard/internal/adapters/telemetry"
	"go.trai.ch/zerr"
)

// setupRecorder installs a recording tracer provider globally; OTelTracer
// resolves its tracer through the global provider.
func setupRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
	})
	return recorder
}

func TestOTelTracer_Spans(t *testing.T) {
	recorder := setupRecorder(t)
	tracer := telemetry.NewOTelTracer("mallard-test")

	_, span := tracer.Start(context.Background(), "build report")
	span.SetAttribute("attempts", 2)
	span.SetAttribute("status", "succeeded")
	span.RecordError(zerr.New("first attempt failed"))
	_, err := span.Write([]byte("attempt retried"))
	require.NoError(t, err)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	got := ended[0]

	assert.Equal(t, "build report", got.Name())

	attrs := make(map[string]any, len(got.Attributes()))
	for _, attr := range got.Attributes() {
		attrs[string(attr.Key)] = attr.Value.AsInterface()
	}
	assert.Equal(t, int64(2), attrs["attempts"])
	assert.Equal(t, "succeeded", attrs["status"])

	var events []string
	for _, event := range got.Events() {
		events = append(events, event.Name)
	}
	assert.Contains(t, events, "exception")
	assert.Contains(t, events, "log")
}

func TestOTelTracer_EmitPlan(t *testing.T) {
	recorder := setupRecorder(t)
	tracer := telemetry.NewOTelTracer("mallard-test")

	// EmitPlan attaches to whatever span is current in the context.
	ctx, span := tracer.Start(context.Background(), "run")
	tracer.EmitPlan(ctx, []string{"base", "report"})
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)

	events := ended[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "plan_emitted", events[0].Name)
	require.Len(t, events[0].Attributes, 1)
	assert.Equal(t, []string{"base", "report"}, events[0].Attributes[0].Value.AsStringSlice())
}

// EmitPlan without a recording span in context must be a no-op.
func TestOTelTracer_EmitPlanWithoutSpan(t *testing.T) {
	recorder := setupRecorder(t)
	tracer := telemetry.NewOTelTracer("mallard-test")

	tracer.EmitPlan(context.Background(), []string{"base"})
	assert.Empty(t, recorder.Ended())
}

func TestNoOpTracer(t *testing.T) {
	t.Parallel()

	tracer := telemetry.NewNoOpTracer()
	ctx, span := tracer.Start(context.Background(), "anything")
	require.NotNil(t, ctx)

	// Every operation is accepted and discarded.
	span.SetAttribute("k", "v")
	span.RecordError(zerr.New("ignored"))
	n, err := span.Write([]byte("ignored"))
	require.NoError(t, err)
	assert.Equal(t, len("ignored"), n)
	span.End()

	tracer.EmitPlan(ctx, []string{"base"})
}
