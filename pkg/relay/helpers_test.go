package relay_test

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"

	"github.com/illmade-knight/go-metricsrelay/pkg/ledger"
	"github.com/illmade-knight/go-metricsrelay/pkg/metricsink"
	"github.com/illmade-knight/go-metricsrelay/pkg/relay"
)

// sinkCall is one recorded PutMetricData call.
type sinkCall struct {
	Namespace string
	Samples   []metricsink.Sample
}

// MockSink records every write and can be told to fail for particular metric names.
type MockSink struct {
	mu     sync.Mutex
	calls  []sinkCall
	FailOn map[string]error
}

func (m *MockSink) PutMetricData(_ context.Context, namespace string, samples []metricsink.Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, sinkCall{Namespace: namespace, Samples: samples})
	for _, s := range samples {
		if err, ok := m.FailOn[s.MetricName]; ok {
			return err
		}
	}
	return nil
}

func (m *MockSink) GetCalls() []sinkCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sinkCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// MockPublisher records published dead letters.
type MockPublisher struct {
	mu        sync.Mutex
	published [][]byte
	attrs     []map[string]string
	err       error
}

func (m *MockPublisher) Publish(_ context.Context, payload []byte, attributes map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, payload)
	m.attrs = append(m.attrs, attributes)
	return m.err
}

func (m *MockPublisher) Stop(_ context.Context) error { return nil }

func (m *MockPublisher) GetPublished() ([][]byte, []map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.published, m.attrs
}

// failingLedger returns errors for every call.
type failingLedger struct{}

func (failingLedger) Seen(context.Context, string) (bool, error) {
	return false, errors.New("ledger unavailable")
}
func (failingLedger) MarkDelivered(context.Context, string, ledger.Mark) error {
	return errors.New("ledger unavailable")
}
func (failingLedger) Close() error { return nil }

func encode(payload string) string {
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

func record(id, payload string) relay.DeliveryRecord {
	return relay.DeliveryRecord{RecordID: id, Data: encode(payload)}
}
