// Command metricsrelay is the Kinesis Analytics output Lambda that writes each
// delivered record as a CloudWatch custom metric. With HTTP_PORT set it serves
// the same handler over HTTP at /invoke for local runs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/illmade-knight/go-metricsrelay/pkg/microservice"
	"github.com/illmade-knight/go-metricsrelay/pkg/relay"
	"github.com/rs/zerolog"
)

func main() {
	baseCfg := microservice.LoadBaseConfigFromEnv("metricsrelay")
	logger := microservice.NewLogger(os.Stdout, baseCfg)

	if err := run(baseCfg, logger); err != nil {
		logger.Error().Err(err).Msg("Metrics relay exited with error")
		os.Exit(1)
	}
}

func run(baseCfg *microservice.BaseConfig, logger zerolog.Logger) error {
	ctx := context.Background()

	r, cleanup, err := relay.NewFromEnv(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to build metrics relay: %w", err)
	}
	defer cleanup()

	if baseCfg.HTTPPort == "" {
		lambda.Start(relay.Handler(r))
		return nil
	}

	server := microservice.NewBaseServer(logger, baseCfg.HTTPPort)
	server.Mux().Handle("/invoke", relay.NewHTTPHandler(r, logger))
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
