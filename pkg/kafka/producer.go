package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// Producer emits contact lifecycle events
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// ContactEvent represents a contact lifecycle event
type ContactEvent struct {
	EventType   string           `json:"event_type"` // contact.created, contact.merged
	ContactID   string           `json:"contact_id"`
	Name        string           `json:"name"`
	Email       string           `json:"email,omitempty"`
	SourceCount int              `json:"source_count"`
	Version     int              `json:"version"`
	Ref         models.SourceRef `json:"ref"`
	Confidence  string           `json:"confidence,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

// ContactCreated publishes a contact.created event
func (p *Producer) ContactCreated(ctx context.Context, contact *models.CanonicalContact, ref models.SourceRef) error {
	return p.publish(ctx, &ContactEvent{
		EventType:   "contact.created",
		ContactID:   contact.ID,
		Name:        contact.Name,
		Email:       contact.Email,
		SourceCount: contact.SourceCount,
		Version:     contact.Version,
		Ref:         ref,
	})
}

// ContactMerged publishes a contact.merged event carrying the match audit
// fields
func (p *Producer) ContactMerged(ctx context.Context, contact *models.CanonicalContact, match *models.MatchResult, ref models.SourceRef) error {
	return p.publish(ctx, &ContactEvent{
		EventType:   "contact.merged",
		ContactID:   contact.ID,
		Name:        contact.Name,
		Email:       contact.Email,
		SourceCount: contact.SourceCount,
		Version:     contact.Version,
		Ref:         ref,
		Confidence:  match.Confidence.String(),
		Reason:      match.Reason,
	})
}

func (p *Producer) publish(ctx context.Context, event *ContactEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.publish")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.ContactID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "source", Value: []byte(event.Ref.Source)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish contact event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": event.EventType,
		"contact_id": event.ContactID,
	}).Debug("Published contact event")

	return nil
}
