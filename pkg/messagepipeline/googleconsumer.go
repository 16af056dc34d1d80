package messagepipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// GooglePubsubConsumerConfig holds configuration for the Pub/Sub consumer.
type GooglePubsubConsumerConfig struct {
	ProjectID              string
	SubscriptionID         string
	CredentialsFile        string // Optional
	MaxOutstandingMessages int
	NumGoroutines          int
	SubscriptionTimeout    time.Duration
}

// NewGooglePubsubConsumerDefaults returns a config with sensible defaults for the subscription.
func NewGooglePubsubConsumerDefaults(subID string) *GooglePubsubConsumerConfig {
	return &GooglePubsubConsumerConfig{
		SubscriptionID:         subID,
		MaxOutstandingMessages: 100,
		NumGoroutines:          5,
		SubscriptionTimeout:    20 * time.Second,
	}
}

// LoadGooglePubsubConsumerConfigFromEnv loads consumer configuration from environment variables.
func LoadGooglePubsubConsumerConfigFromEnv() (*GooglePubsubConsumerConfig, error) {
	cfg := NewGooglePubsubConsumerDefaults(os.Getenv("PUBSUB_SUBSCRIPTION_ID"))
	cfg.ProjectID = os.Getenv("GCP_PROJECT_ID")
	cfg.CredentialsFile = os.Getenv("GCP_PUBSUB_CREDENTIALS_FILE")
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("GCP_PROJECT_ID environment variable not set")
	}
	if cfg.SubscriptionID == "" {
		return nil, fmt.Errorf("PUBSUB_SUBSCRIPTION_ID environment variable not set")
	}
	if mom := os.Getenv("PUBSUB_MAX_OUTSTANDING_MESSAGES"); mom != "" {
		if val, err := strconv.Atoi(mom); err == nil && val > 0 {
			cfg.MaxOutstandingMessages = val
		}
	}
	return cfg, nil
}

// NewPubsubClient creates a Pub/Sub client, using Application Default Credentials
// unless a credentials file is given.
func NewPubsubClient(ctx context.Context, projectID, credentialsFile string, logger zerolog.Logger) (*pubsub.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub.NewClient: %w", err)
	}
	logger.Info().Str("project_id", projectID).Msg("Pub/Sub client created successfully.")
	return client, nil
}

// GooglePubsubConsumer implements MessageConsumer over a Pub/Sub subscription.
type GooglePubsubConsumer struct {
	subscription       *pubsub.Subscription
	logger             zerolog.Logger
	outputChan         chan Message
	stopOnce           sync.Once
	cancelSubscription context.CancelFunc
	doneChan           chan struct{}
}

// NewGooglePubsubConsumer verifies the subscription exists and returns a consumer for it.
func NewGooglePubsubConsumer(cfg *GooglePubsubConsumerConfig, client *pubsub.Client, logger zerolog.Logger) (*GooglePubsubConsumer, error) {
	if client == nil {
		return nil, errors.New("pubsub client cannot be nil")
	}
	sub := client.Subscription(cfg.SubscriptionID)

	timeout := cfg.SubscriptionTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	existsCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	exists, err := sub.Exists(existsCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for subscription %s: %w", cfg.SubscriptionID, err)
	}
	if !exists {
		return nil, fmt.Errorf("subscription %s does not exist", cfg.SubscriptionID)
	}

	sub.ReceiveSettings.MaxOutstandingMessages = cfg.MaxOutstandingMessages
	sub.ReceiveSettings.NumGoroutines = cfg.NumGoroutines

	return &GooglePubsubConsumer{
		subscription: sub,
		logger:       logger.With().Str("component", "GooglePubsubConsumer").Str("subscription_id", cfg.SubscriptionID).Logger(),
		outputChan:   make(chan Message, cfg.MaxOutstandingMessages),
		doneChan:     make(chan struct{}),
	}, nil
}

// Messages returns the channel of received messages.
func (c *GooglePubsubConsumer) Messages() <-chan Message { return c.outputChan }

// Start begins receiving in a background goroutine.
func (c *GooglePubsubConsumer) Start(ctx context.Context) error {
	receiveCtx, cancel := context.WithCancel(ctx)
	c.cancelSubscription = cancel
	go func() {
		defer close(c.doneChan)
		defer close(c.outputChan)

		c.logger.Info().Msg("Pub/Sub Receive goroutine started.")
		err := c.subscription.Receive(receiveCtx, func(ctx context.Context, msg *pubsub.Message) {
			payloadCopy := make([]byte, len(msg.Data))
			copy(payloadCopy, msg.Data)

			attempt := 0
			if msg.DeliveryAttempt != nil {
				attempt = *msg.DeliveryAttempt
			}

			consumed := Message{
				MessageData: MessageData{
					ID:              msg.ID,
					Payload:         payloadCopy,
					PublishTime:     msg.PublishTime,
					DeliveryAttempt: attempt,
				},
				Attributes: msg.Attributes,
				Ack:        msg.Ack,
				Nack:       msg.Nack,
			}

			select {
			case c.outputChan <- consumed:
			case <-receiveCtx.Done():
				msg.Nack()
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error().Err(err).Msg("Pub/Sub Receive call exited with error")
		}
		c.logger.Info().Msg("Pub/Sub Receive goroutine stopped.")
	}()
	return nil
}

// Stop cancels the receive loop and waits for it to exit, respecting ctx.
func (c *GooglePubsubConsumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		if c.cancelSubscription == nil {
			close(c.outputChan)
			close(c.doneChan)
			return
		}
		c.cancelSubscription()
		select {
		case <-c.doneChan:
		case <-ctx.Done():
			err = fmt.Errorf("timeout waiting for Pub/Sub receive to stop: %w", ctx.Err())
		}
	})
	return err
}

// Done is closed once the receive loop has exited.
func (c *GooglePubsubConsumer) Done() <-chan struct{} { return c.doneChan }
