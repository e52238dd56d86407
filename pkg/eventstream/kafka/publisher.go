// Package kafka publishes memory lifecycle events to an Apache Kafka topic.
// Events are keyed by domain so per-domain ordering survives partitioning.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/eventstream"
)

// DefaultTopic is used when the config does not name one.
const DefaultTopic = "mnemo.events"

// Config is the configuration options for the Kafka publisher.
type Config struct {
	// Brokers is the bootstrap broker list, host:port.
	Brokers []string

	// Topic defaults to DefaultTopic.
	Topic string
}

// Publisher writes events to a Kafka topic.
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewPublisher creates a Kafka publisher. The writer connects lazily; broker
// availability surfaces on the first publish.
func NewPublisher(c Config, logger *zap.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(c.Brokers...),
		Topic:    c.Topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &Publisher{writer: writer, logger: logger}, nil
}

// PublishRecordStored publishes a stored-record event keyed by the record's
// domain.
func (p *Publisher) PublishRecordStored(ctx context.Context, event *eventstream.RecordStoredEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return p.publish(ctx, event.EventType, event.Record.Domain, event)
}

// PublishConsolidationCompleted publishes a run summary keyed by the run's
// domain.
func (p *Publisher) PublishConsolidationCompleted(ctx context.Context, event *eventstream.ConsolidationCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return p.publish(ctx, event.EventType, event.Summary.Domain, event)
}

// PublishAccessResolved publishes a resolved request keyed by its source
// domain.
func (p *Publisher) PublishAccessResolved(ctx context.Context, event *eventstream.AccessResolvedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return p.publish(ctx, event.EventType, event.Request.SourceDomain, event)
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func (p *Publisher) publish(ctx context.Context, eventType, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", eventType, err)
	}

	p.logger.Debug("published event",
		zap.String("event_type", eventType),
		zap.String("key", key),
	)
	return nil
}
