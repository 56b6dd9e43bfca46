package server

import (
	"context"

	"github.com/kbukum/scribe/component"
)

var _ component.Component = (*Component)(nil)

// Component adapts Server to the component lifecycle.
type Component struct {
	server  *Server
	started bool
}

// NewComponent wraps s.
func NewComponent(s *Server) *Component {
	return &Component{server: s}
}

// Name implements component.Component.
func (c *Component) Name() string { return "http-server" }

// Start implements component.Component.
func (c *Component) Start(ctx context.Context) error {
	if err := c.server.Start(ctx); err != nil {
		return err
	}
	c.started = true
	return nil
}

// Stop implements component.Component.
func (c *Component) Stop(ctx context.Context) error {
	c.started = false
	return c.server.Stop(ctx)
}

// Health implements component.Component.
func (c *Component) Health(context.Context) component.Health {
	if !c.started {
		return component.Unhealthy(c.Name(), "not serving")
	}
	return component.Healthy(c.Name())
}
