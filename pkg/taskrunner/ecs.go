// Package taskrunner starts and stops the containerized producer task on ECS.
package taskrunner

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/rs/zerolog"
)

// ECSAPI is the subset of the ECS client used by Launcher and Stopper.
type ECSAPI interface {
	RunTask(ctx context.Context, params *ecs.RunTaskInput, optFns ...func(*ecs.Options)) (*ecs.RunTaskOutput, error)
	StopTask(ctx context.Context, params *ecs.StopTaskInput, optFns ...func(*ecs.Options)) (*ecs.StopTaskOutput, error)
}

// ClientConfig holds configuration for the ECS client.
type ClientConfig struct {
	Region   string
	Endpoint string
}

// LoadClientConfigFromEnv loads ECS client configuration from environment variables.
func LoadClientConfigFromEnv() *ClientConfig {
	return &ClientConfig{
		Region:   os.Getenv("AWS_REGION"),
		Endpoint: os.Getenv("ECS_ENDPOINT"),
	}
}

// NewECSClient creates an ECS client from the default AWS configuration chain.
func NewECSClient(ctx context.Context, cfg *ClientConfig, logger zerolog.Logger) (*ecs.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg != nil && cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	var clientOpts []func(*ecs.Options)
	if cfg != nil && cfg.Endpoint != "" {
		logger.Info().Str("endpoint", cfg.Endpoint).Msg("Using custom endpoint for ECS client.")
		clientOpts = append(clientOpts, func(o *ecs.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	return ecs.NewFromConfig(awsCfg, clientOpts...), nil
}
