package relay

import (
	"context"
	"errors"
	"os"

	"github.com/illmade-knight/go-metricsrelay/pkg/ledger"
	"github.com/illmade-knight/go-metricsrelay/pkg/messagepipeline"
	"github.com/illmade-knight/go-metricsrelay/pkg/metricsink"
	"github.com/rs/zerolog"
)

// NewFromEnv builds a Relay with its CloudWatch sink, optional BigQuery mirror,
// optional ledger and optional dead-letter publisher, all configured from the
// environment. The returned cleanup releases them in reverse order of creation.
func NewFromEnv(ctx context.Context, logger zerolog.Logger) (*Relay, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn().Err(err).Msg("Error during cleanup.")
			}
		}
	}
	fail := func(err error) (*Relay, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	relayCfg, err := LoadConfigFromEnv()
	if err != nil {
		return fail(err)
	}

	cwClient, err := metricsink.NewCloudWatchClient(ctx, metricsink.LoadCloudWatchConfigFromEnv(), logger)
	if err != nil {
		return fail(err)
	}
	cwSink, err := metricsink.NewCloudWatchSink(cwClient, logger)
	if err != nil {
		return fail(err)
	}
	var sink metricsink.Sink = cwSink

	bqCfg, err := metricsink.LoadBigQueryConfigFromEnv()
	if err != nil {
		return fail(err)
	}
	if bqCfg != nil {
		bqClient, err := metricsink.NewProductionBigQueryClient(ctx, bqCfg, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, bqClient.Close)
		inserter, err := metricsink.NewBigQueryInserter[metricsink.MetricRow](ctx, bqClient, bqCfg, logger)
		if err != nil {
			return fail(err)
		}
		bqSink, err := metricsink.NewBigQuerySink(inserter, logger)
		if err != nil {
			return fail(err)
		}
		mirrored, err := metricsink.NewMirroredSink(cwSink, logger, bqSink)
		if err != nil {
			return fail(err)
		}
		sink = mirrored
	}

	var opts []Option

	ledgerCfg, err := ledger.LoadConfigFromEnv()
	if err != nil {
		return fail(err)
	}
	l, err := ledger.New(ctx, ledgerCfg, logger)
	if err != nil {
		return fail(err)
	}
	if l != nil {
		closers = append(closers, l.Close)
		opts = append(opts, WithLedger(l))
	}

	if dlCfg := messagepipeline.LoadDeadLetterConfigFromEnv(); dlCfg != nil {
		projectID := os.Getenv("GCP_PROJECT_ID")
		if projectID == "" {
			return fail(errors.New("GCP_PROJECT_ID environment variable not set for dead-letter topic"))
		}
		psClient, err := messagepipeline.NewPubsubClient(ctx, projectID, os.Getenv("GCP_PUBSUB_CREDENTIALS_FILE"), logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, psClient.Close)
		publisher, err := messagepipeline.NewGoogleSimplePublisher(ctx, dlCfg, psClient, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() error { return publisher.Stop(context.Background()) })
		opts = append(opts, WithDeadLetter(publisher))
	}

	r, err := New(*relayCfg, sink, logger, opts...)
	if err != nil {
		return fail(err)
	}
	return r, cleanup, nil
}
