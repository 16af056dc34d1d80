// Command producerlauncher is the Lambda that starts one producer task on ECS.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/illmade-knight/go-metricsrelay/pkg/microservice"
	"github.com/illmade-knight/go-metricsrelay/pkg/taskrunner"
)

func main() {
	logger := microservice.NewLogger(os.Stdout, microservice.LoadBaseConfigFromEnv("producerlauncher"))

	cfg, err := taskrunner.LoadLauncherConfigFromEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load launcher config")
	}
	client, err := taskrunner.NewECSClient(context.Background(), taskrunner.LoadClientConfigFromEnv(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create ECS client")
	}
	launcher, err := taskrunner.NewLauncher(cfg, client, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create launcher")
	}

	lambda.Start(taskrunner.LaunchHandler(launcher))
}
