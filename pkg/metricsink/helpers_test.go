package metricsink_test

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/illmade-knight/go-metricsrelay/pkg/metricsink"
)

// mockCloudWatch records every PutMetricData input.
type mockCloudWatch struct {
	mu     sync.Mutex
	inputs []*cloudwatch.PutMetricDataInput
	putErr error
}

func (m *mockCloudWatch) PutMetricData(_ context.Context, params *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, params)
	if m.putErr != nil {
		return nil, m.putErr
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func (m *mockCloudWatch) GetInputs() []*cloudwatch.PutMetricDataInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inputs
}

// MockDataBatchInserter is a mock implementation of metricsink.DataBatchInserter.
type MockDataBatchInserter[T any] struct {
	mu            sync.Mutex
	receivedItems [][]*T
	InsertBatchFn func(ctx context.Context, items []*T) error
	closed        bool
}

func (m *MockDataBatchInserter[T]) InsertBatch(ctx context.Context, items []*T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receivedItems = append(m.receivedItems, items)
	if m.InsertBatchFn != nil {
		return m.InsertBatchFn(ctx, items)
	}
	return nil
}

func (m *MockDataBatchInserter[T]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockDataBatchInserter[T]) GetReceivedItems() [][]*T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.receivedItems
}

// recordingSink captures every call made to it.
type recordingSink struct {
	mu    sync.Mutex
	calls [][]metricsink.Sample
	err   error
}

func (r *recordingSink) PutMetricData(_ context.Context, _ string, samples []metricsink.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, samples)
	return r.err
}

func (r *recordingSink) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}
