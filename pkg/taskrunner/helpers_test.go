package taskrunner_test

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/ecs"
)

// MockECS records every request it receives.
type MockECS struct {
	mu      sync.Mutex
	runs    []*ecs.RunTaskInput
	stops   []*ecs.StopTaskInput
	RunOut  *ecs.RunTaskOutput
	StopOut *ecs.StopTaskOutput
	Err     error
}

func (m *MockECS) RunTask(_ context.Context, params *ecs.RunTaskInput, _ ...func(*ecs.Options)) (*ecs.RunTaskOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, params)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.RunOut == nil {
		return &ecs.RunTaskOutput{}, nil
	}
	return m.RunOut, nil
}

func (m *MockECS) StopTask(_ context.Context, params *ecs.StopTaskInput, _ ...func(*ecs.Options)) (*ecs.StopTaskOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops = append(m.stops, params)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.StopOut == nil {
		return &ecs.StopTaskOutput{}, nil
	}
	return m.StopOut, nil
}

func (m *MockECS) GetRuns() []*ecs.RunTaskInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}

func (m *MockECS) GetStops() []*ecs.StopTaskInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}
