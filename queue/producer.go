package queue

import (
	"context"
	"fmt"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/scribe/logger"
)

// Publisher enqueues task descriptors.
type Publisher interface {
	Publish(ctx context.Context, d Descriptor) error
}

// messageWriter is the subset of *kafkago.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Producer publishes descriptors synchronously, returning only after every
// in-sync replica has persisted the message.
type Producer struct {
	writer messageWriter
	topic  string
	log    *logger.Logger
	mu     sync.RWMutex
	closed bool
}

var _ Publisher = (*Producer)(nil)

// NewProducer creates a producer for cfg.Topic.
func NewProducer(cfg Config, log *logger.Logger) (*Producer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	transport, err := newTransport(&cfg)
	if err != nil {
		return nil, fmt.Errorf("queue producer transport: %w", err)
	}

	plog := log.WithComponent("queue.producer")
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Transport:              transport,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		Async:                  false,
		BatchSize:              1,
		WriteTimeout:           parseDuration(cfg.WriteTimeout),
		AllowAutoTopicCreation: true,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			plog.Error("writer: "+fmt.Sprintf(msg, args...), logger.Fields(logger.FieldTopic, cfg.Topic))
		}),
	}
	plog.Info("Queue producer initialized", logger.Fields(logger.FieldTopic, cfg.Topic, "brokers", cfg.Brokers))
	return newProducer(w, cfg.Topic, plog), nil
}

func newProducer(w messageWriter, topic string, log *logger.Logger) *Producer {
	return &Producer{writer: w, topic: topic, log: log}
}

// Topic returns the destination topic.
func (p *Producer) Topic() string { return p.topic }

// Publish writes d keyed by task id. Failures are returned as retryable
// AppErrors.
func (p *Producer) Publish(ctx context.Context, d Descriptor) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return FromKafka(fmt.Errorf("producer is closed"), p.topic)
	}

	msg, err := d.toMessage()
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.WithTask(d.TaskID).Error("Publish failed", logger.Fields(logger.FieldTopic, p.topic, logger.FieldError, err.Error()))
		return FromKafka(err, p.topic)
	}
	p.log.WithTask(d.TaskID).Debug("Task published", logger.Fields(logger.FieldTopic, p.topic))
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}
