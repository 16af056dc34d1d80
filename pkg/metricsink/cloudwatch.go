package metricsink

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/rs/zerolog"
)

// CloudWatchAPI is the subset of the CloudWatch client used by CloudWatchSink.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchConfig holds configuration for the CloudWatch client.
type CloudWatchConfig struct {
	Region   string // Optional: falls back to the default AWS resolution chain.
	Endpoint string // Optional: used against local emulators.
}

// LoadCloudWatchConfigFromEnv loads CloudWatch configuration from environment variables.
func LoadCloudWatchConfigFromEnv() *CloudWatchConfig {
	return &CloudWatchConfig{
		Region:   os.Getenv("AWS_REGION"),
		Endpoint: os.Getenv("CLOUDWATCH_ENDPOINT"),
	}
}

// NewCloudWatchClient creates a CloudWatch client from the default AWS configuration chain.
func NewCloudWatchClient(ctx context.Context, cfg *CloudWatchConfig, logger zerolog.Logger) (*cloudwatch.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg != nil && cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	var clientOpts []func(*cloudwatch.Options)
	if cfg != nil && cfg.Endpoint != "" {
		logger.Info().Str("endpoint", cfg.Endpoint).Msg("Using custom endpoint for CloudWatch client.")
		clientOpts = append(clientOpts, func(o *cloudwatch.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	logger.Info().Str("region", awsCfg.Region).Msg("CloudWatch client created successfully.")
	return cloudwatch.NewFromConfig(awsCfg, clientOpts...), nil
}

// CloudWatchSink writes samples as CloudWatch custom metrics.
type CloudWatchSink struct {
	client CloudWatchAPI
	logger zerolog.Logger
}

// NewCloudWatchSink creates a sink over the given client. The client is shared
// and may be reused across invocations.
func NewCloudWatchSink(client CloudWatchAPI, logger zerolog.Logger) (*CloudWatchSink, error) {
	if client == nil {
		return nil, errors.New("cloudwatch client cannot be nil")
	}
	return &CloudWatchSink{
		client: client,
		logger: logger.With().Str("component", "CloudWatchSink").Logger(),
	}, nil
}

// PutMetricData submits the samples in a single PutMetricData call.
func (s *CloudWatchSink) PutMetricData(ctx context.Context, namespace string, samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}
	data := make([]types.MetricDatum, len(samples))
	for i, sample := range samples {
		data[i] = toMetricDatum(sample)
	}

	s.logger.Debug().Str("namespace", namespace).Int("sample_count", len(samples)).Msg("Putting metric data.")
	if _, err := s.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(namespace),
		MetricData: data,
	}); err != nil {
		return fmt.Errorf("cloudwatch PutMetricData failed: %w", err)
	}
	return nil
}

func toMetricDatum(s Sample) types.MetricDatum {
	unit := types.StandardUnitNone
	if s.Unit != "" && s.Unit != UnitNone {
		unit = types.StandardUnit(s.Unit)
	}
	ts := s.Timestamp.UTC()
	return types.MetricDatum{
		MetricName:        aws.String(s.MetricName),
		Timestamp:         aws.Time(ts),
		Value:             aws.Float64(s.Value),
		Unit:              unit,
		StorageResolution: aws.Int32(s.StorageResolution),
	}
}
