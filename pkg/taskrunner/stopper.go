package taskrunner

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/rs/zerolog"
)

// StopReason is recorded by ECS against every task this package stops.
const StopReason = "USER REQUEST THROUGH LAMBDA"

// StopperConfig identifies the cluster the task runs in.
type StopperConfig struct {
	ClusterName string
}

// LoadStopperConfigFromEnv reads CLUSTER_NAME.
func LoadStopperConfigFromEnv() (*StopperConfig, error) {
	cfg := &StopperConfig{ClusterName: os.Getenv("CLUSTER_NAME")}
	if cfg.ClusterName == "" {
		return nil, errors.New("CLUSTER_NAME environment variable not set")
	}
	return cfg, nil
}

// StopEvent is the invocation payload of the stopper.
type StopEvent struct {
	TaskArn string `json:"taskArn"`
}

// Stopper stops one task per call.
type Stopper struct {
	cfg    StopperConfig
	client ECSAPI
	logger zerolog.Logger
}

// NewStopper creates a Stopper.
func NewStopper(cfg *StopperConfig, client ECSAPI, logger zerolog.Logger) (*Stopper, error) {
	if cfg == nil {
		return nil, errors.New("stopper config cannot be nil")
	}
	if client == nil {
		return nil, errors.New("ecs client cannot be nil")
	}
	return &Stopper{
		cfg:    *cfg,
		client: client,
		logger: logger.With().Str("component", "TaskStopper").Str("cluster", cfg.ClusterName).Logger(),
	}, nil
}

// Stop stops the task named by the event.
func (s *Stopper) Stop(ctx context.Context, ev StopEvent) (*ecs.StopTaskOutput, error) {
	if ev.TaskArn == "" {
		return nil, errors.New("taskArn is required")
	}
	out, err := s.client.StopTask(ctx, &ecs.StopTaskInput{
		Cluster: aws.String(s.cfg.ClusterName),
		Task:    aws.String(ev.TaskArn),
		Reason:  aws.String(StopReason),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to stop task %s: %w", ev.TaskArn, err)
	}
	s.logger.Info().Str("task_arn", ev.TaskArn).Msg("Stopped producer task.")
	return out, nil
}
