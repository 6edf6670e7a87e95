package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Tooro-byte/Kings-Collection-App-sub001/internal/cart/service"
	"github.com/segmentio/kafka-go"
)

const Topic = "cart-events"

// KafkaPublisher emits cart lifecycle events for downstream consumers
// (analytics, abandoned-cart jobs). Messages are keyed by user so one user's
// events stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishCartUpdated(ctx context.Context, event service.CartUpdatedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal cart event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.UserID),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write cart event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
