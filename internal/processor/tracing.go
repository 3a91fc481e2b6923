package processor

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "workorder-engine/processor"

const (
	spanCycle = "processor.poll_cycle"
	spanItem  = "processor.handle_item"

	attrRun     = "run_id"
	attrItemID  = "item_id"
	attrItems   = "items"
	attrOutcome = "outcome"
)

// tracer is resolved on every call so a provider installed after New is used.
func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func startCycleSpan(ctx context.Context, runID uint64) (context.Context, trace.Span) {
	return tracer().Start(ctx, spanCycle, trace.WithAttributes(
		attribute.Int64(attrRun, int64(runID)),
	))
}

func startItemSpan(ctx context.Context, itemID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, spanItem, trace.WithAttributes(
		attribute.String(attrItemID, itemID),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
