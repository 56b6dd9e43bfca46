package queue

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/logger"
)

// ProducerComponent manages the Producer lifecycle for the API process.
type ProducerComponent struct {
	cfg      Config
	log      *logger.Logger
	producer *Producer
}

var _ component.Component = (*ProducerComponent)(nil)

// NewProducerComponent creates the component; the writer is built on Start.
func NewProducerComponent(cfg Config, log *logger.Logger) *ProducerComponent {
	cfg.ApplyDefaults()
	return &ProducerComponent{cfg: cfg, log: log}
}

// Producer returns the producer, or nil before Start.
func (c *ProducerComponent) Producer() *Producer { return c.producer }

// Name returns the component name.
func (c *ProducerComponent) Name() string { return "queue" }

// Start builds the producer. Brokers are contacted lazily on first publish.
func (c *ProducerComponent) Start(_ context.Context) error {
	p, err := NewProducer(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("queue start: %w", err)
	}
	c.producer = p
	c.log.Info("Queue producer ready", logger.Fields(logger.FieldTopic, p.Topic()))
	return nil
}

// Stop closes the producer.
func (c *ProducerComponent) Stop(_ context.Context) error {
	if c.producer == nil {
		return nil
	}
	return c.producer.Close()
}

// Health dials the first reachable broker.
func (c *ProducerComponent) Health(ctx context.Context) component.Health {
	if c.producer == nil {
		return component.Unhealthy(c.Name(), "producer not initialized")
	}
	if err := PingBrokers(ctx, c.cfg); err != nil {
		return component.Unhealthy(c.Name(), err.Error())
	}
	return component.Healthy(c.Name())
}

// PingBrokers succeeds if any configured broker accepts a connection.
func PingBrokers(ctx context.Context, cfg Config) error {
	dialer, err := newDialer(&cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var lastErr error
	for _, broker := range cfg.Brokers {
		conn, err := dialer.DialContext(ctx, "tcp", broker)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("no broker reachable: %w", lastErr)
}

var _ messageReader = (*kafkago.Reader)(nil)
var _ messageWriter = (*kafkago.Writer)(nil)
