// Command producerstopper is the Lambda that stops a producer task on ECS.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/illmade-knight/go-metricsrelay/pkg/microservice"
	"github.com/illmade-knight/go-metricsrelay/pkg/taskrunner"
)

func main() {
	logger := microservice.NewLogger(os.Stdout, microservice.LoadBaseConfigFromEnv("producerstopper"))

	cfg, err := taskrunner.LoadStopperConfigFromEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load stopper config")
	}
	client, err := taskrunner.NewECSClient(context.Background(), taskrunner.LoadClientConfigFromEnv(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create ECS client")
	}
	stopper, err := taskrunner.NewStopper(cfg, client, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create stopper")
	}

	lambda.Start(stopper.Stop)
}
