// Command pubsubrelay consumes unencoded analytics payloads from a Pub/Sub
// subscription and writes them as CloudWatch custom metrics with the same
// conversion the Lambda relay uses.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/illmade-knight/go-metricsrelay/pkg/messagepipeline"
	"github.com/illmade-knight/go-metricsrelay/pkg/metricsink"
	"github.com/illmade-knight/go-metricsrelay/pkg/microservice"
	"github.com/illmade-knight/go-metricsrelay/pkg/relay"
	"github.com/rs/zerolog"
)

// defaultPayloadLimits rejects empty payloads and anything too large to be an
// analytics record.
var defaultPayloadLimits = messagepipeline.PayloadSizeLimits{MinBytes: 2, MaxBytes: 64 << 10}

func main() {
	baseCfg := microservice.LoadBaseConfigFromEnv("pubsubrelay")
	if baseCfg.HTTPPort == "" {
		baseCfg.HTTPPort = ":8080"
	}
	logger := microservice.NewLogger(os.Stdout, baseCfg)

	if err := run(baseCfg, logger); err != nil {
		logger.Error().Err(err).Msg("Pub/Sub relay exited with error")
		os.Exit(1)
	}
}

func run(baseCfg *microservice.BaseConfig, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, cleanup, err := relay.NewFromEnv(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to build metrics relay: %w", err)
	}
	defer cleanup()

	consumerCfg, err := messagepipeline.LoadGooglePubsubConsumerConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load consumer config: %w", err)
	}
	psClient, err := messagepipeline.NewPubsubClient(ctx, consumerCfg.ProjectID, consumerCfg.CredentialsFile, logger)
	if err != nil {
		return err
	}
	defer psClient.Close()

	consumer, err := messagepipeline.NewGooglePubsubConsumer(consumerCfg, psClient, logger)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	numWorkers := 5
	if n, err := strconv.Atoi(os.Getenv("PUBSUB_NUM_WORKERS")); err == nil && n > 0 {
		numWorkers = n
	}
	limits, err := messagepipeline.LoadPayloadSizeLimitsFromEnv(defaultPayloadLimits)
	if err != nil {
		return err
	}
	transformer := messagepipeline.WithPayloadSizeLimits(relay.NewPayloadTransformer(logger), limits, logger)
	service, err := messagepipeline.NewStreamingService[metricsink.Sample](
		messagepipeline.StreamingServiceConfig{NumWorkers: numWorkers},
		consumer,
		transformer,
		r.NewSinkProcessor(),
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create streaming service: %w", err)
	}

	server := microservice.NewBaseServer(logger, baseCfg.HTTPPort)
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	shutdownServer := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	if err := service.Start(ctx); err != nil {
		shutdownServer()
		return fmt.Errorf("failed to start streaming service: %w", err)
	}
	logger.Info().Str("subscription_id", consumerCfg.SubscriptionID).Msg("Pub/Sub relay running.")

	<-ctx.Done()
	logger.Info().Msg("Shutdown signal received.")

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := service.Stop(stopCtx); err != nil {
		logger.Error().Err(err).Msg("Streaming service did not stop cleanly")
	}
	shutdownServer()
	return nil
}
