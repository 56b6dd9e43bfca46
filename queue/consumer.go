package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/resilience"
)

// Handler processes one descriptor. It returns after the task reached a
// terminal status; a non-nil error is logged and the message is dropped,
// unless it wraps ErrRedeliver.
type Handler func(ctx context.Context, d Descriptor) error

// ErrRedeliver marks a handler error after which the message must not be
// committed. The consumer restarts its session after the reconnect delay
// and the group hands the message out again.
var ErrRedeliver = errors.New("message left for redelivery")

// messageReader is the subset of *kafkago.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer reads descriptors one at a time from a consumer group.
type Consumer struct {
	newReader      func() messageReader
	topic          string
	reconnectDelay time.Duration
	log            *logger.Logger
}

// NewConsumer creates a consumer for cfg.Topic in cfg.GroupID.
func NewConsumer(cfg Config, log *logger.Logger) (*Consumer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dialer, err := newDialer(&cfg)
	if err != nil {
		return nil, fmt.Errorf("queue consumer dialer: %w", err)
	}

	clog := log.WithComponent("queue.consumer")
	readerCfg := kafkago.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             cfg.Topic,
		GroupID:           cfg.GroupID,
		Dialer:            dialer,
		StartOffset:       kafkago.FirstOffset,
		MinBytes:          1,
		MaxBytes:          1 << 20,
		QueueCapacity:     1,
		CommitInterval:    0,
		SessionTimeout:    parseDuration(cfg.SessionTimeout),
		HeartbeatInterval: parseDuration(cfg.HeartbeatInterval),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			clog.Error("reader: "+fmt.Sprintf(msg, args...), logger.Fields(logger.FieldTopic, cfg.Topic))
		}),
	}
	factory := func() messageReader { return kafkago.NewReader(readerCfg) }
	return newConsumer(factory, cfg.Topic, parseDuration(cfg.ReconnectDelay), clog), nil
}

func newConsumer(factory func() messageReader, topic string, delay time.Duration, log *logger.Logger) *Consumer {
	return &Consumer{newReader: factory, topic: topic, reconnectDelay: delay, log: log}
}

// Run consumes until ctx is cancelled. Broker errors recreate the reader
// after the reconnect delay. It returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	c.log.Info("Consume loop started", logger.Fields(logger.FieldTopic, c.topic))

	retry := resilience.FixedDelay(c.reconnectDelay)
	retry.OnRetry = func(attempt int, err error, wait time.Duration) {
		c.log.Warn("Consumer session ended, restarting", logger.Fields(
			logger.FieldAttempt, attempt,
			logger.FieldError, err.Error(),
			"wait", wait.String(),
		))
	}

	err := resilience.RetryFunc(ctx, retry, func() error { return c.session(ctx, handle) })
	if ctx.Err() != nil {
		c.log.Info("Consume loop stopped")
		return nil
	}
	return err
}

// session owns one reader until a broker error or cancellation.
func (c *Consumer) session(ctx context.Context, handle Handler) error {
	r := c.newReader()
	defer func() {
		if err := r.Close(); err != nil {
			c.log.Debug("Reader close failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("fetch: %w", err)
		}

		if err := c.dispatch(ctx, msg, handle); err != nil {
			return fmt.Errorf("offset %d left uncommitted: %w", msg.Offset, err)
		}
		if ctx.Err() != nil {
			// Interrupted mid-task: leave the offset so the group redelivers it.
			return ctx.Err()
		}

		if err := r.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("commit: %w", err)
		}
	}
}

// dispatch hands msg to handle. It returns an error only when the message
// must stay uncommitted.
func (c *Consumer) dispatch(ctx context.Context, msg kafkago.Message, handle Handler) error {
	fields := logger.Fields(logger.FieldTopic, msg.Topic, logger.FieldPartition, msg.Partition, logger.FieldOffset, msg.Offset)

	d, err := decodeDescriptor(msg)
	if err != nil {
		c.log.Error("Dropping undecodable message", logger.Fields(logger.FieldError, err.Error()), fields)
		return nil
	}

	log := c.log.WithTask(d.TaskID)
	log.Info("Task received", fields)
	err = handle(ctx, d)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return nil
	case errors.Is(err, ErrRedeliver):
		log.Warn("Task handler asked for redelivery", logger.Fields(logger.FieldError, err.Error()), fields)
		return err
	default:
		log.Error("Task handler failed, message dropped", logger.Fields(logger.FieldError, err.Error()), fields)
		return nil
	}
}
