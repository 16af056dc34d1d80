package messagepipeline

import (
	"context"
)

// MessageConsumer defines the interface for a message source (e.g., Pub/Sub).
// It is responsible for fetching messages and handing them off to the pipeline.
type MessageConsumer interface {
	// Messages returns a read-only channel from which pipeline workers will receive messages.
	Messages() <-chan Message
	// Start begins the consumption process (e.g., by calling subscription.Receive).
	Start(ctx context.Context) error
	// Stop gracefully ceases message consumption and waits for background tasks to finish.
	Stop(ctx context.Context) error
	// Done returns a channel that is closed when the consumer has completely shut down.
	Done() <-chan struct{}
}

// MessageTransformer turns a generic Message into a structured payload of type T.
//
// The 'skip' return value can be set to true to signal that this message should
// be acknowledged and not processed further, effectively filtering it from the pipeline.
type MessageTransformer[T any] func(ctx context.Context, msg *Message) (payload *T, skip bool, err error)

// StreamProcessor handles transformed messages of type T one by one. A returned
// error causes the pipeline to Nack the message.
type StreamProcessor[T any] func(ctx context.Context, original Message, payload *T) error
