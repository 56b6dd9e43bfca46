package app

import (
	"context"
	"fmt"

	"github.com/kbukum/scribe/account"
	"github.com/kbukum/scribe/admission"
	"github.com/kbukum/scribe/api"
	"github.com/kbukum/scribe/bootstrap"
	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/probe"
	"github.com/kbukum/scribe/query"
	"github.com/kbukum/scribe/queue"
	"github.com/kbukum/scribe/quota"
	"github.com/kbukum/scribe/redis"
	"github.com/kbukum/scribe/server"
	"github.com/kbukum/scribe/storage"
	"github.com/kbukum/scribe/task"
)

// NewAPI builds the HTTP API process. Infrastructure components are
// registered up front; services and the HTTP server are wired once those
// are running.
func NewAPI(cfg *Config, opts ...bootstrap.Option) (*bootstrap.App[*Config], error) {
	app, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, err
	}
	log := app.Logger

	telemetry := observability.NewComponent(cfg.Telemetry, cfg.Name, cfg.Version, log)
	db := database.NewComponent(cfg.Database, log).WithAutoMigrate(&account.Account{}, &task.Task{})
	store := storage.NewComponent(cfg.Storage, log)
	producer := queue.NewProducerComponent(cfg.Kafka, log)

	var cache *redis.Component
	if cfg.Redis.Enabled {
		cache = redis.NewComponent(cfg.Redis, log)
	}

	for _, c := range registrations(telemetry, db, cache, store, producer) {
		if err := app.RegisterComponent(c); err != nil {
			return nil, err
		}
	}

	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
		metrics, err := observability.NewMetrics(observability.Meter(cfg.Name))
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}

		var tokens account.TokenCache
		if cache != nil {
			tokens = account.NewRedisTokenCache(cache.Client(), cfg.tokenCacheTTL(), log)
		}
		accounts := account.NewService(db.DB(), tokens, cfg.Quota.DefaultTimeLimit, log)

		prober := probe.NewFFprobe(cfg.Probe)
		if !prober.Available() {
			log.Warn("ffprobe not found, uploads will be rejected", logger.Fields("binary", cfg.Probe.Binary))
		}

		tasks := task.NewStore(db.DB())
		admit := admission.NewController(
			store.Store(), prober, quota.NewLedger(db.DB()), tasks, producer.Producer(), log,
		).WithMaxFileSize(cfg.Storage.MaxFileSizeBytes())
		queries := query.NewService(tasks, store.Store())

		srv := server.New(cfg.HTTP, log)
		srv.ApplyMiddleware(metrics)
		handlers := api.NewHandlers(accounts, admit, queries, log)
		api.Register(srv.GinEngine(), handlers, cfg.Name, a.Components.HealthAll)

		return a.RegisterComponent(server.NewComponent(srv))
	})

	return app, nil
}

// RunAPI builds and runs the API until a shutdown signal arrives.
func RunAPI(ctx context.Context, cfg *Config, opts ...bootstrap.Option) error {
	app, err := NewAPI(cfg, opts...)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
