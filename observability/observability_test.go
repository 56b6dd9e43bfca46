package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/logger"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" || cfg.Interval != "15s" {
		t.Errorf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	cfg.SampleRate = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected sample_rate error")
	}
}

func TestDisabledComponent(t *testing.T) {
	c := NewComponent(Config{}, "svc", "dev", logger.NewNop())
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if h := c.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("health = %+v", h)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordRequest(ctx, "GET", "/status", 200, time.Millisecond)
	m.TaskStarted(ctx)
	m.TaskFinished(ctx, OutcomeDone, time.Second)
	m.AudioTranscribed(ctx, 12)
}

func TestNewMetrics_Noop(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	m.RecordRequest(context.Background(), "POST", "/task", 200, time.Millisecond)
}

func TestOperation(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	_, op := StartOperation(ctx, metrics, "task.process", "task-1")
	op.End(ctx, OutcomeError, errors.New("engine down"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("span status = %v", spans[0].Status())
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "tasks.processed" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok || len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
				t.Errorf("tasks.processed = %+v", m.Data)
			}
			found = true
		}
	}
	if !found {
		t.Error("tasks.processed not recorded")
	}
}

func TestAggregate(t *testing.T) {
	h := Aggregate("svc", "1.0", []component.Health{component.Healthy("db")})
	if !h.Up() {
		t.Errorf("status = %s", h.Status)
	}
	h = Aggregate("svc", "1.0", []component.Health{component.Healthy("db"), component.Unhealthy("kafka", "down")})
	if h.Up() {
		t.Error("expected down")
	}
}
