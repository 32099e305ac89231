package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "opsdeck"

// StartTransitionSpan starts a span for a board status transition.
func StartTransitionSpan(ctx context.Context, taskID, from, to string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "transition",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.String("transition.from", from),
			attribute.String("transition.to", to),
		),
	)
}

// StartRefreshSpan starts a span for a board refresh.
func StartRefreshSpan(ctx context.Context, owner string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "board.refresh",
		trace.WithAttributes(
			attribute.String("board.owner", owner),
		),
	)
}
