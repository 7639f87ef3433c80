package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/wyfcoding/kalmantrack/config"
)

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), config.TracingConfig{})
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown: %v", err)
	}
}

func TestSpanHelpers(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, span := StartSpan(context.Background(), "estimate")
	AddTag(ctx, "samples", 1001)
	AddTags(ctx, "seed", uint64(42), "noise", "uniform", "dangling")
	SetError(ctx, errors.New("boom"))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 || ended[0].Name() != "estimate" {
		t.Fatalf("recorded spans = %v", ended)
	}
	if ended[0].Status().Description != "boom" {
		t.Errorf("status = %+v", ended[0].Status())
	}
	attrs := ended[0].Attributes()
	if len(attrs) != 3 {
		t.Fatalf("attributes = %v", attrs)
	}
	for _, kv := range attrs {
		if kv.Key == "seed" && kv.Value.AsInt64() != 42 {
			t.Errorf("seed = %v, want int64 42", kv.Value)
		}
	}
}

func TestAddTagsWithoutSpan(t *testing.T) {
	// 无活动 Span 时静默忽略
	AddTags(context.Background(), "seed", uint64(1))
	AddTag(context.Background(), "seed", uint64(1))
}
