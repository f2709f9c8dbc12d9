package contracts

import (
	"context"
)

// EventQueue carries audit events from producers to the trail writer over a
// redis stream. Producer failures are the caller's to swallow: enqueueing an
// audit record must never fail the primary operation.
type EventQueue interface {
	// Producer side
	PublishToStream(ctx context.Context, topic string, payload []byte) error
	// Consumer side: blocking group-read loop, invoking handler per entry.
	SubscribeToStream(ctx context.Context, topic, group string, handler func(ctx context.Context, messageID string, data []byte) error) error
	// AcknowledgeMessage marks a stream entry as processed (XACK).
	AcknowledgeMessage(ctx context.Context, topic, group, messageID string) error
	// DeleteMessage trims a processed entry from the stream (XDEL).
	DeleteMessage(ctx context.Context, topic, messageID string) error
}
