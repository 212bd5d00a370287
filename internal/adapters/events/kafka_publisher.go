package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher delivers outbox events to Kafka. Event types follow the
// "openfinance.<domain>.<action>" convention; unless a topic is mapped
// explicitly, events land on the per-domain topic "openfinance.<domain>".
type KafkaPublisher struct {
	writer       *kafka.Writer
	topicByEvent map[string]string
}

func NewKafkaPublisher(brokers []string, topicByEvent map[string]string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			// Records for one consent or account share a partition key, so
			// hashing preserves their order for downstream consumers.
			Balancer:     &kafka.Hash{},
			BatchTimeout: 100 * time.Millisecond,
		},
		topicByEvent: topicByEvent,
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topicFor(eventType),
		Key:   []byte(partitionKey),
		Value: payload,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	})
}

func (p *KafkaPublisher) topicFor(eventType string) string {
	if mapped, ok := p.topicByEvent[eventType]; ok && mapped != "" {
		return mapped
	}
	// "openfinance.payment.accepted" -> "openfinance.payment".
	if parts := strings.Split(eventType, "."); len(parts) >= 2 {
		return parts[0] + "." + parts[1]
	}
	return eventType
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
