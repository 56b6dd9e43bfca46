package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Task outcomes recorded by the worker.
const (
	OutcomeDone     = "done"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"
	OutcomeCanceled = "canceled"
)

// Metrics holds the service instruments. A nil *Metrics records nothing.
type Metrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	tasksActive     metric.Int64UpDownCounter
	taskTotal       metric.Int64Counter
	taskDuration    metric.Float64Histogram
	audioSeconds    metric.Float64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requestTotal, err := meter.Int64Counter("http.server.requests",
		metric.WithDescription("HTTP requests served"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http.server.requests counter: %w", err)
	}
	requestDuration, err := meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http.server.duration histogram: %w", err)
	}
	tasksActive, err := meter.Int64UpDownCounter("tasks.active",
		metric.WithDescription("Tasks currently being transcribed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tasks.active counter: %w", err)
	}
	taskTotal, err := meter.Int64Counter("tasks.processed",
		metric.WithDescription("Task messages handled, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tasks.processed counter: %w", err)
	}
	taskDuration, err := meter.Float64Histogram("tasks.duration",
		metric.WithDescription("Wall time from Begin to the terminal transition"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tasks.duration histogram: %w", err)
	}
	audioSeconds, err := meter.Float64Counter("tasks.audio_seconds",
		metric.WithDescription("Audio seconds transcribed and debited"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tasks.audio_seconds counter: %w", err)
	}

	return &Metrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		tasksActive:     tasksActive,
		taskTotal:       taskTotal,
		taskDuration:    taskDuration,
		audioSeconds:    audioSeconds,
	}, nil
}

// RecordRequest records one served HTTP request.
func (m *Metrics) RecordRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	m.requestTotal.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, duration.Seconds(), attrs)
}

// TaskStarted increments the active task gauge.
func (m *Metrics) TaskStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.tasksActive.Add(ctx, 1)
}

// TaskFinished decrements the active gauge and records the outcome.
func (m *Metrics) TaskFinished(ctx context.Context, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.tasksActive.Add(ctx, -1)
	m.taskTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.taskDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

// AudioTranscribed adds debited audio seconds.
func (m *Metrics) AudioTranscribed(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.audioSeconds.Add(ctx, seconds)
}
