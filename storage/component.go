package storage

import (
	"context"
	"fmt"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/logger"
)

// Component wraps Store for lifecycle management.
type Component struct {
	cfg   Config
	log   *logger.Logger
	store *Store
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a storage component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	return &Component{cfg: cfg, log: log.WithComponent("storage")}
}

// Store returns the underlying Store, or nil if not started.
func (c *Component) Store() *Store { return c.store }

// Name returns the component name.
func (c *Component) Name() string { return "storage" }

// Start prepares the base directory.
func (c *Component) Start(_ context.Context) error {
	s, err := New(c.cfg)
	if err != nil {
		return fmt.Errorf("storage start: %w", err)
	}
	c.store = s
	c.log.Info("Storage ready", logger.Fields("base_path", s.BasePath()))
	return nil
}

// Stop is a no-op; files stay on disk.
func (c *Component) Stop(_ context.Context) error { return nil }

// Health checks that the base directory is still present.
func (c *Component) Health(_ context.Context) component.Health {
	if c.store == nil {
		return component.Unhealthy(c.Name(), "storage not initialized")
	}
	if err := c.store.Writable(); err != nil {
		return component.Unhealthy(c.Name(), err.Error())
	}
	return component.Healthy(c.Name())
}
