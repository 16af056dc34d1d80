package taskrunner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/rs/zerolog"
)

// LauncherConfig identifies the task to run and where to run it.
type LauncherConfig struct {
	ClusterName    string
	TaskDefinition string
	Subnets        []string
}

// LoadLauncherConfigFromEnv reads CLUSTER_NAME, TASK_DEFINITION and SUBNETS.
// SUBNETS is a JSON array of subnet ids.
func LoadLauncherConfigFromEnv() (*LauncherConfig, error) {
	cfg := &LauncherConfig{
		ClusterName:    os.Getenv("CLUSTER_NAME"),
		TaskDefinition: os.Getenv("TASK_DEFINITION"),
	}
	if cfg.ClusterName == "" {
		return nil, errors.New("CLUSTER_NAME environment variable not set")
	}
	if cfg.TaskDefinition == "" {
		return nil, errors.New("TASK_DEFINITION environment variable not set")
	}
	subnets := os.Getenv("SUBNETS")
	if subnets == "" {
		return nil, errors.New("SUBNETS environment variable not set")
	}
	if err := json.Unmarshal([]byte(subnets), &cfg.Subnets); err != nil {
		return nil, fmt.Errorf("SUBNETS must be a JSON array of strings: %w", err)
	}
	return cfg, nil
}

// Launcher starts one producer task per call.
type Launcher struct {
	cfg    LauncherConfig
	client ECSAPI
	logger zerolog.Logger
}

// NewLauncher creates a Launcher.
func NewLauncher(cfg *LauncherConfig, client ECSAPI, logger zerolog.Logger) (*Launcher, error) {
	if cfg == nil {
		return nil, errors.New("launcher config cannot be nil")
	}
	if client == nil {
		return nil, errors.New("ecs client cannot be nil")
	}
	return &Launcher{
		cfg:    *cfg,
		client: client,
		logger: logger.With().Str("component", "TaskLauncher").Str("cluster", cfg.ClusterName).Logger(),
	}, nil
}

// Launch runs a single Fargate task with no public IP.
func (l *Launcher) Launch(ctx context.Context) (*ecs.RunTaskOutput, error) {
	out, err := l.client.RunTask(ctx, &ecs.RunTaskInput{
		Cluster:         aws.String(l.cfg.ClusterName),
		TaskDefinition:  aws.String(l.cfg.TaskDefinition),
		LaunchType:      types.LaunchTypeFargate,
		Count:           aws.Int32(1),
		PlatformVersion: aws.String("LATEST"),
		NetworkConfiguration: &types.NetworkConfiguration{
			AwsvpcConfiguration: &types.AwsVpcConfiguration{
				Subnets:        l.cfg.Subnets,
				AssignPublicIp: types.AssignPublicIpDisabled,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run task %s: %w", l.cfg.TaskDefinition, err)
	}
	for _, task := range out.Tasks {
		l.logger.Info().Str("task_arn", aws.ToString(task.TaskArn)).Msg("Launched producer task.")
	}
	for _, f := range out.Failures {
		l.logger.Warn().Str("arn", aws.ToString(f.Arn)).Str("reason", aws.ToString(f.Reason)).Msg("ECS reported a launch failure.")
	}
	return out, nil
}

// LaunchHandler adapts the launcher to the Lambda runtime. The event is ignored.
func LaunchHandler(l *Launcher) func(ctx context.Context, _ json.RawMessage) (*ecs.RunTaskOutput, error) {
	return func(ctx context.Context, _ json.RawMessage) (*ecs.RunTaskOutput, error) {
		return l.Launch(ctx)
	}
}
