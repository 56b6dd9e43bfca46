// Package observability wires OpenTelemetry tracing and metrics for the API
// and the worker.
//
//	tel := observability.NewComponent(cfg.Telemetry, "scribe-worker", version.Version, log)
//	registry.Register(tel)
//
//	metrics, _ := observability.NewMetrics(observability.Meter("scribe"))
//	ctx, op := observability.StartOperation(ctx, metrics, "task.process", taskID)
//	defer op.End(ctx, outcome, err)
//
// With telemetry disabled the global no-op providers stay in place and every
// instrument records into nothing.
package observability
