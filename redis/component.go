package redis

import (
	"context"
	"fmt"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/logger"
)

// Component exposes Client through the component lifecycle.
type Component struct {
	client *Client
	cfg    Config
	log    *logger.Logger
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a Redis component.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	return &Component{cfg: cfg, log: log.WithComponent("redis")}
}

// Client returns the client, or nil before Start.
func (c *Component) Client() *Client { return c.client }

// Name returns the component name.
func (c *Component) Name() string { return "redis" }

// Start creates the client and verifies connectivity.
func (c *Component) Start(ctx context.Context) error {
	client, err := New(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("redis start: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis start ping: %w", err)
	}
	c.client = client
	return nil
}

// Stop closes the client.
func (c *Component) Stop(_ context.Context) error {
	return c.client.Close()
}

// Health pings Redis.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.client == nil {
		return component.Unhealthy(c.Name(), "redis not initialized")
	}
	if err := c.client.Ping(ctx); err != nil {
		return component.Unhealthy(c.Name(), fmt.Sprintf("ping failed: %v", err))
	}
	return component.Healthy(c.Name())
}
