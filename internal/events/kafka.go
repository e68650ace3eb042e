package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/citation-network-service/internal/observability"
)

// Defaults for KafkaConfig.
const (
	DefaultTopic          = "events.citation_network"
	DefaultBatchTimeout   = 50 * time.Millisecond
	DefaultPublishTimeout = 5 * time.Second
)

// KafkaConfig holds configuration for the Kafka publisher.
type KafkaConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic receives network events.
	Topic string
	// BatchTimeout bounds how long the writer buffers messages.
	BatchTimeout time.Duration
	// PublishTimeout bounds a single publish.
	PublishTimeout time.Duration
	// ServiceName is written as the event source.
	ServiceName string
}

// messageWriter is the subset of *kafka.Writer used by the publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic.
type KafkaPublisher struct {
	writer  messageWriter
	config  KafkaConfig
	metrics *observability.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// NewKafkaPublisher creates a publisher backed by a kafka-go Writer.
func NewKafkaPublisher(cfg KafkaConfig, metrics *observability.Metrics, logger zerolog.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker is required")
	}
	cfg = cfg.withDefaults()

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}

	return newKafkaPublisher(writer, cfg, metrics, logger), nil
}

func newKafkaPublisher(writer messageWriter, cfg KafkaConfig, metrics *observability.Metrics, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  writer,
		config:  cfg.withDefaults(),
		metrics: metrics,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
		now:     time.Now,
	}
}

func (c KafkaConfig) withDefaults() KafkaConfig {
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = DefaultBatchTimeout
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = DefaultPublishTimeout
	}
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	return c
}

// PublishNetworkBuilt writes a citation_network.built event keyed by source id.
func (p *KafkaPublisher) PublishNetworkBuilt(ctx context.Context, payload NetworkBuiltPayload) error {
	event, err := NewEvent(p.config.ServiceName, EventTypeNetworkBuilt,
		observability.RequestIDFromContext(ctx), payload, p.now())
	if err != nil {
		p.metrics.RecordEventFailed(EventTypeNetworkBuilt)
		return err
	}

	if err := p.write(ctx, payload.SourceID, event); err != nil {
		p.metrics.RecordEventFailed(EventTypeNetworkBuilt)
		p.logger.Error().Err(err).
			Str("event_id", event.EventID).
			Str("source_id", payload.SourceID).
			Msg("failed to publish network event")
		return err
	}

	p.metrics.RecordEventPublished(EventTypeNetworkBuilt)
	p.logger.Debug().
		Str("event_id", event.EventID).
		Str("source_id", payload.SourceID).
		Msg("network event published")
	return nil
}

func (p *KafkaPublisher) write(ctx context.Context, key string, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.PublishTimeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	})
	if err != nil {
		return fmt.Errorf("write message to %s: %w", p.config.Topic, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var _ Publisher = (*KafkaPublisher)(nil)
