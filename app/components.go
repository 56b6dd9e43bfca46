package app

import (
	"context"
	"fmt"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/engine"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/redis"
)

// registrations drops an unconfigured redis component so a typed nil never
// reaches the registry.
func registrations(cs ...component.Component) []component.Component {
	out := make([]component.Component, 0, len(cs))
	for _, c := range cs {
		if r, ok := c.(*redis.Component); ok && r == nil {
			continue
		}
		out = append(out, c)
	}
	return out
}

// engineComponent reports engine reachability through the registry. An
// unreachable engine is logged at startup but does not stop the worker;
// tasks fail individually instead.
type engineComponent struct {
	engine engine.Engine
	log    *logger.Logger
}

var _ component.Component = (*engineComponent)(nil)

func newEngineComponent(eng engine.Engine, log *logger.Logger) *engineComponent {
	return &engineComponent{engine: eng, log: log.WithComponent("engine")}
}

func (c *engineComponent) Name() string { return "engine" }

func (c *engineComponent) Start(ctx context.Context) error {
	if err := c.ping(ctx); err != nil {
		c.log.Warn("Transcription engine unreachable", logger.Fields(
			"provider", c.engine.Name(),
			logger.FieldError, err.Error(),
		))
		return nil
	}
	c.log.Info("Transcription engine ready", logger.Fields("provider", c.engine.Name()))
	return nil
}

func (c *engineComponent) Stop(context.Context) error { return nil }

func (c *engineComponent) Health(ctx context.Context) component.Health {
	if err := c.ping(ctx); err != nil {
		return component.Unhealthy(c.Name(), err.Error())
	}
	return component.Healthy(c.Name())
}

func (c *engineComponent) ping(ctx context.Context) error {
	hc, ok := c.engine.(engine.HealthChecker)
	if !ok {
		return nil
	}
	if err := hc.Ping(ctx); err != nil {
		return fmt.Errorf("%s: %w", c.engine.Name(), err)
	}
	return nil
}
