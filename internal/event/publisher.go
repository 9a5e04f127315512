// Package event publishes order lifecycle events to Kafka.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher writes order events as JSON messages keyed by order.
type KafkaPublisher struct {
	writer MessageWriter
}

// NewKafkaPublisher creates a publisher on top of w.
func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// batchTimeout bounds how long a publish after commit holds the HTTP response.
const batchTimeout = 10 * time.Millisecond

// NewKafkaWriter builds a writer for topic on the given brokers.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           batchTimeout,
		AllowAutoTopicCreation: true,
	}
}

// messageKey keeps every event of one order on the same partition,
// e.g. order-created-42.
func messageKey(evt model.OrderEvent) string {
	name := strings.TrimPrefix(evt.Type, "order.")
	return fmt.Sprintf("order-%s-%d", name, evt.OrderID)
}

// Publish assigns evt an id if it has none and writes it.
func (p *KafkaPublisher) Publish(ctx context.Context, evt model.OrderEvent) error {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", evt.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(messageKey(evt)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event for order %d: %w", evt.Type, evt.OrderID, err)
	}
	return nil
}

// LogPublisher logs events instead of sending them. Used when no broker is configured.
type LogPublisher struct{}

// Publish logs evt at debug level.
func (LogPublisher) Publish(ctx context.Context, evt model.OrderEvent) error {
	log.Debug().
		Str("event_type", evt.Type).
		Int64("order_id", evt.OrderID).
		Str("order_number", evt.OrderNumber).
		Msg("order event (publishing disabled)")
	return nil
}
