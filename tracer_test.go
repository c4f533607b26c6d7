package jwtmiddleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNoopTracer(t *testing.T) {
	tracer := &NoopTracer{}
	ctx := context.Background()

	got, span := tracer.StartSpan(ctx, "test_span")

	assert.Equal(t, ctx, got)
	_, ok := span.(*NoopSpan)
	assert.True(t, ok, "Should return a NoopSpan")

	span.SetTag("tag", "value")
	span.SetError(errors.New("boom"))
	span.Finish()
}

func TestOpenTelemetryTracer(t *testing.T) {
	tracer := NewOpenTelemetryTracer(noop.NewTracerProvider().Tracer("test"))

	_, span := tracer.StartSpan(context.Background(), SpanVerify)

	_, ok := span.(*OpenTelemetrySpan)
	assert.True(t, ok, "Should return an OpenTelemetrySpan")

	span.SetTag("auth.outcome", OutcomeAuthenticated)
	span.SetError(errors.New("boom"))
	span.Finish()

	assert.NotNil(t, NewOpenTelemetryTracer(nil), "nil falls back to the global provider")
}
