package app

import (
	"context"
	"fmt"

	"github.com/kbukum/scribe/bootstrap"
	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/engine"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/queue"
	"github.com/kbukum/scribe/storage"
	"github.com/kbukum/scribe/task"
	"github.com/kbukum/scribe/transcript"
	"github.com/kbukum/scribe/worker"
)

// Worker is a configured worker process ready to consume.
type Worker struct {
	*bootstrap.App[*Config]

	handler     *worker.Worker
	newConsumer func() (*queue.Consumer, error)
}

// NewWorker builds the worker process around eng. When eng is nil the
// engine is built from cfg.Engine.
func NewWorker(cfg *Config, eng engine.Engine, opts ...bootstrap.Option) (*Worker, error) {
	app, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, err
	}
	log := app.Logger

	if eng == nil {
		if eng, err = engine.New(cfg.Engine, log); err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
	}

	telemetry := observability.NewComponent(cfg.Telemetry, cfg.Name, cfg.Version, log)
	db := database.NewComponent(cfg.Database, log)
	store := storage.NewComponent(cfg.Storage, log)
	for _, c := range registrations(telemetry, db, store, newEngineComponent(eng, log)) {
		if err := app.RegisterComponent(c); err != nil {
			return nil, err
		}
	}

	w := &Worker{
		App:         app,
		newConsumer: func() (*queue.Consumer, error) { return queue.NewConsumer(cfg.Kafka, log) },
	}
	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
		metrics, err := observability.NewMetrics(observability.Meter(cfg.Name))
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		w.handler = worker.New(
			task.NewMachine(db.DB(), log),
			eng,
			transcript.NewAssembler(cfg.Assembler.MaxPause),
			transcript.NewWriter(store.Store()),
			store.Store(),
			metrics,
			log,
		)
		return nil
	})
	return w, nil
}

// Run starts the components and consumes tasks until a shutdown signal
// arrives or ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	return w.RunTask(ctx, func(ctx context.Context) error {
		consumer, err := w.newConsumer()
		if err != nil {
			return fmt.Errorf("consumer: %w", err)
		}
		return consumer.Run(ctx, w.handler.Handle)
	})
}

// RunWorker builds and runs the worker process.
func RunWorker(ctx context.Context, cfg *Config, opts ...bootstrap.Option) error {
	w, err := NewWorker(cfg, nil, opts...)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
