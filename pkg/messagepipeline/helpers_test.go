package messagepipeline_test

import (
	"context"
	"sync"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/illmade-knight/go-metricsrelay/pkg/messagepipeline"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// newTestPubsubClient starts an in-process Pub/Sub server and returns a client for it.
func newTestPubsubClient(t *testing.T, ctx context.Context, projectID string) *pubsub.Client {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(ctx, projectID, option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// MockMessageConsumer is a mock implementation of the MessageConsumer interface for testing.
type MockMessageConsumer struct {
	msgChan    chan messagepipeline.Message
	startCount int
	stopCount  int
	mu         sync.Mutex
	closeOnce  sync.Once
}

func NewMockMessageConsumer(bufferSize int) *MockMessageConsumer {
	return &MockMessageConsumer{
		msgChan: make(chan messagepipeline.Message, bufferSize),
	}
}
func (m *MockMessageConsumer) Push(msg messagepipeline.Message) {
	m.msgChan <- msg
}
func (m *MockMessageConsumer) Close() {
	m.closeOnce.Do(func() {
		close(m.msgChan)
	})
}
func (m *MockMessageConsumer) Messages() <-chan messagepipeline.Message {
	return m.msgChan
}
func (m *MockMessageConsumer) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startCount++
	return nil
}
func (m *MockMessageConsumer) Stop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCount++
	m.Close()
	return nil
}
func (m *MockMessageConsumer) Done() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}
func (m *MockMessageConsumer) GetStartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startCount
}
func (m *MockMessageConsumer) GetStopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCount
}
