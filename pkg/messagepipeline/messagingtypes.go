package messagepipeline

import (
	"time"
)

// Message is the internal representation of a record flowing through a
// streaming relay. It carries the raw data, broker metadata and the
// acknowledgment handles of the source.
type Message struct {
	MessageData

	// Attributes holds metadata from the message broker (e.g., Pub/Sub attributes).
	Attributes map[string]string

	// Ack signals that the record was relayed and can be removed from the source.
	Ack func()

	// Nack signals that relaying failed and the record should be redelivered
	// or dead-lettered by the broker.
	Nack func()
}

// MessageData holds the essential payload of a message.
type MessageData struct {
	// ID is the unique identifier for the message from the source broker.
	ID string `json:"id"`

	// Payload is the raw byte content of the message.
	Payload []byte `json:"payload"`

	// PublishTime is the timestamp when the message was originally published.
	PublishTime time.Time `json:"publishTime"`

	// DeliveryAttempt is the broker's delivery counter, zero when the broker
	// does not track attempts.
	DeliveryAttempt int `json:"deliveryAttempt,omitempty"`
}
