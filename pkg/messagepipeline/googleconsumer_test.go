package messagepipeline_test

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/illmade-knight/go-metricsrelay/pkg/messagepipeline"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupConsumerTest creates a topic and subscription on an in-process Pub/Sub server.
func setupConsumerTest(t *testing.T, ctx context.Context, topicID, subID string) (*pubsub.Client, *pubsub.Topic) {
	t.Helper()
	client := newTestPubsubClient(t, ctx, "test-project")

	topic, err := client.CreateTopic(ctx, topicID)
	require.NoError(t, err)
	_, err = client.CreateSubscription(ctx, subID, pubsub.SubscriptionConfig{Topic: topic})
	require.NoError(t, err)
	return client, topic
}

func TestGooglePubsubConsumer_ReceiveMessage(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	client, topic := setupConsumerTest(t, ctx, "metrics-topic", "metrics-sub")
	t.Cleanup(topic.Stop)

	consumer, err := messagepipeline.NewGooglePubsubConsumer(messagepipeline.NewGooglePubsubConsumerDefaults("metrics-sub"), client, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, consumer.Start(ctx))
	t.Cleanup(func() { _ = consumer.Stop(context.Background()) })

	payload := []byte(`{"AD":"Clicked","INGESTION_TIME":1567208819301,"NBR":3}`)
	res := topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"source": "test-harness"},
	})
	_, err = res.Get(ctx)
	require.NoError(t, err)

	select {
	case msg := <-consumer.Messages():
		assert.Equal(t, payload, msg.Payload)
		assert.Equal(t, "test-harness", msg.Attributes["source"])
		msg.Ack()
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message from consumer")
	}
}

func TestGooglePubsubConsumer_Stop(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	client, _ := setupConsumerTest(t, ctx, "stop-topic", "stop-sub")
	consumer, err := messagepipeline.NewGooglePubsubConsumer(messagepipeline.NewGooglePubsubConsumerDefaults("stop-sub"), client, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, consumer.Start(ctx))

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, consumer.Stop(stopCtx))

	select {
	case <-consumer.Done():
	case <-time.After(time.Second):
		t.Fatal("consumer.Done() channel was not closed after stop")
	}
	_, ok := <-consumer.Messages()
	assert.False(t, ok, "consumer.Messages() channel should be closed")
}

func TestNewGooglePubsubConsumer_MissingSubscription(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	client := newTestPubsubClient(t, ctx, "test-project")
	_, err := messagepipeline.NewGooglePubsubConsumer(messagepipeline.NewGooglePubsubConsumerDefaults("nope"), client, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}
