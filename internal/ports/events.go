package ports

import "context"

// EventPublisher is the outbound domain-event publish port.
// The broker client lives in adapters so the outbox worker stays neutral.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}
