// Package kafka publishes retrieval events to a Kafka topic with segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/recall/pkg/eventstream"
)

// DefaultWriteTimeout bounds a single publish when Config.WriteTimeout is unset.
const DefaultWriteTimeout = 5 * time.Second

// MessageWriter is the subset of *kafkago.Writer the publisher depends on.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config configures a Kafka publisher.
type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration

	// Writer overrides the kafka-go writer built from Brokers and Topic.
	Writer MessageWriter
}

// Publisher writes each event as a JSON message keyed by retrieval method.
type Publisher struct {
	writer       MessageWriter
	topic        string
	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewPublisher validates c and creates a publisher.
func NewPublisher(c Config, logger *slog.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if c.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	timeout := c.WriteTimeout
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}

	writer := c.Writer
	if writer == nil {
		writer = &kafkago.Writer{
			Addr:                   kafkago.TCP(c.Brokers...),
			Topic:                  c.Topic,
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireOne,
			AllowAutoTopicCreation: true,
		}
	}

	logger.Info("initialized kafka publisher", "brokers", c.Brokers, "topic", c.Topic)

	return &Publisher{
		writer:       writer,
		topic:        c.Topic,
		writeTimeout: timeout,
		logger:       logger,
	}, nil
}

// PublishRetrieval marshals event and writes it to the topic.
func (p *Publisher) PublishRetrieval(ctx context.Context, event *eventstream.RetrievalCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilRetrievalEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling retrieval event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	msg := kafkago.Message{
		Key:   []byte(event.Request.Method),
		Value: payload,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing to kafka topic %s: %w", p.topic, err)
	}

	p.logger.Debug("published retrieval event", "event_id", event.EventID, "topic", p.topic)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
