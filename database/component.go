package database

import (
	"context"
	"fmt"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/logger"
)

// Component exposes DB through the component lifecycle.
type Component struct {
	cfg    Config
	log    *logger.Logger
	db     *DB
	models []interface{}
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a database component.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	return &Component{cfg: cfg, log: log.WithComponent("database")}
}

// WithAutoMigrate registers models migrated on Start when auto_migrate is set.
func (c *Component) WithAutoMigrate(models ...interface{}) *Component {
	c.models = append(c.models, models...)
	return c
}

// DB returns the connection, or nil before Start.
func (c *Component) DB() *DB { return c.db }

// Name returns the component name.
func (c *Component) Name() string { return "database" }

// Start connects and optionally migrates.
func (c *Component) Start(ctx context.Context) error {
	db, err := Open(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}
	c.db = db
	if c.cfg.AutoMigrate && len(c.models) > 0 {
		if err := db.AutoMigrate(c.models...); err != nil {
			return fmt.Errorf("database auto-migrate: %w", err)
		}
	}
	return nil
}

// Stop closes the pool.
func (c *Component) Stop(_ context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Health pings the database.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.db == nil {
		return component.Unhealthy(c.Name(), "database not initialized")
	}
	if err := c.db.Ping(ctx); err != nil {
		return component.Unhealthy(c.Name(), fmt.Sprintf("ping failed: %v", err))
	}
	return component.Healthy(c.Name())
}
