package contracts

import "context"

// AsyncWorker drains one stream topic until the context is cancelled.
type AsyncWorker interface {
	// Run starts the consumer loop for a topic.
	Run(ctx context.Context, topic string) error
	// ProcessMessage handles one stream entry: persist, acknowledge, trim.
	ProcessMessage(ctx context.Context, messageID string, data []byte) error
}
