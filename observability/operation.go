package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrTaskID    = "task.id"
	AttrAccountID = "account.id"
	AttrOutcome   = "task.outcome"
	AttrEngine    = "engine.name"
)

// Operation tracks one task's processing span and metrics.
type Operation struct {
	span    trace.Span
	metrics *Metrics
	start   time.Time
}

// StartOperation starts a span for taskID and marks the task active.
func StartOperation(ctx context.Context, metrics *Metrics, name, taskID string, attrs ...attribute.KeyValue) (context.Context, *Operation) {
	ctx, span := StartSpan(ctx, name, trace.WithAttributes(append(attrs, attribute.String(AttrTaskID, taskID))...))
	metrics.TaskStarted(ctx)
	return ctx, &Operation{span: span, metrics: metrics, start: time.Now()}
}

// Span returns the operation span.
func (o *Operation) Span() trace.Span { return o.span }

// Elapsed returns the time since the operation started.
func (o *Operation) Elapsed() time.Duration { return time.Since(o.start) }

// End records the outcome, marks the span failed when err is set and ends it.
func (o *Operation) End(ctx context.Context, outcome string, err error) {
	if err != nil {
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
	}
	o.span.SetAttributes(attribute.String(AttrOutcome, outcome))
	o.span.End()
	o.metrics.TaskFinished(context.WithoutCancel(ctx), outcome, o.Elapsed())
}
