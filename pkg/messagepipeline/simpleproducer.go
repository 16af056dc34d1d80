package messagepipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
)

// SimplePublisher is a direct, non-batching publisher. The relay uses it to
// dead-letter records it could not deliver.
type SimplePublisher interface {
	Publish(ctx context.Context, payload []byte, attributes map[string]string) error
	// Stop flushes any pending messages and accepts a context for timeout control.
	Stop(ctx context.Context) error
}

// GoogleSimplePublisherConfig holds configuration for GoogleSimplePublisher.
type GoogleSimplePublisherConfig struct {
	TopicID            string
	TopicExistsTimeout time.Duration
}

// NewGoogleSimplePublisherDefaults returns a config with sensible defaults for the topic.
func NewGoogleSimplePublisherDefaults(topicID string) *GoogleSimplePublisherConfig {
	return &GoogleSimplePublisherConfig{
		TopicID:            topicID,
		TopicExistsTimeout: 15 * time.Second,
	}
}

// LoadDeadLetterConfigFromEnv returns the dead-letter publisher config, or nil
// when DEADLETTER_TOPIC_ID is unset.
func LoadDeadLetterConfigFromEnv() *GoogleSimplePublisherConfig {
	topicID := os.Getenv("DEADLETTER_TOPIC_ID")
	if topicID == "" {
		return nil
	}
	return NewGoogleSimplePublisherDefaults(topicID)
}

// GoogleSimplePublisher implements SimplePublisher for Pub/Sub.
type GoogleSimplePublisher struct {
	topic  *pubsub.Topic
	logger zerolog.Logger
}

// NewGoogleSimplePublisher verifies the topic exists and returns a publisher for it.
func NewGoogleSimplePublisher(ctx context.Context, cfg *GoogleSimplePublisherConfig, client *pubsub.Client, logger zerolog.Logger) (*GoogleSimplePublisher, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client cannot be nil")
	}
	topic := client.Topic(cfg.TopicID)

	existsCtx, cancel := context.WithTimeout(ctx, cfg.TopicExistsTimeout)
	defer cancel()
	exists, err := topic.Exists(existsCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for topic %s: %w", cfg.TopicID, err)
	}
	if !exists {
		return nil, fmt.Errorf("pubsub topic %s does not exist", cfg.TopicID)
	}

	return &GoogleSimplePublisher{
		topic:  topic,
		logger: logger.With().Str("component", "GoogleSimplePublisher").Str("topic_id", cfg.TopicID).Logger(),
	}, nil
}

// Publish sends a single message and waits for the server's confirmation.
// A function runtime may freeze the process as soon as the handler returns,
// so the result is never left to a background goroutine.
func (p *GoogleSimplePublisher) Publish(ctx context.Context, payload []byte, attributes map[string]string) error {
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: attributes,
	})
	msgID, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	p.logger.Debug().Str("published_msg_id", msgID).Msg("Message published.")
	return nil
}

// Stop flushes pending messages, respecting the context's timeout.
func (p *GoogleSimplePublisher) Stop(ctx context.Context) error {
	if p.topic == nil {
		return nil
	}
	stopDone := make(chan struct{})
	go func() {
		p.topic.Stop()
		close(stopDone)
	}()

	select {
	case <-stopDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
