// Package telemetry wires OpenTelemetry tracing around the conversation
// pipeline's stages, one span per stage parented under a per-turn root
// span.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/omkarlalla-code/kiosk-project/pipeline"

// Tracer returns the package-level tracer, sourced from the globally
// configured TracerProvider (a no-op provider if none was installed).
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartTurn starts the root span for one conversation turn.
func StartTurn(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "pipeline.turn",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
}

// StartStage starts a child span for a single pipeline stage.
func StartStage(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "pipeline.stage."+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("stage.name", name)),
	)
}

// EndWithError ends span, recording err as the span status if non-nil.
func EndWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
