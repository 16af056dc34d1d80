package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/illmade-knight/go-metricsrelay/pkg/ledger"
	"github.com/illmade-knight/go-metricsrelay/pkg/messagepipeline"
	"github.com/illmade-knight/go-metricsrelay/pkg/metricsink"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Config holds the relay's process-wide settings.
type Config struct {
	// Namespace is the CloudWatch namespace every sample is written under.
	Namespace string
	// Concurrency bounds how many records of one batch are in flight.
	// Values below 2 process records sequentially.
	Concurrency int
}

// LoadConfigFromEnv loads relay configuration from environment variables.
func LoadConfigFromEnv() (*Config, error) {
	cfg := &Config{
		Namespace:   os.Getenv("METRICS_NAMESPACE"),
		Concurrency: 1,
	}
	if cfg.Namespace == "" {
		cfg.Namespace = metricsink.DefaultNamespace
	}
	if c := os.Getenv("RELAY_CONCURRENCY"); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid RELAY_CONCURRENCY %q", c)
		}
		cfg.Concurrency = n
	}
	return cfg, nil
}

// Option configures optional collaborators of a Relay.
type Option func(*Relay)

// WithLedger makes the relay acknowledge already-delivered records without
// writing them again.
func WithLedger(l ledger.Ledger) Option {
	return func(r *Relay) { r.ledger = l }
}

// WithDeadLetter publishes every failed record to the given publisher.
func WithDeadLetter(p messagepipeline.SimplePublisher) Option {
	return func(r *Relay) { r.deadLetter = p }
}

// Relay converts delivery records into metric samples, one sink write per record.
type Relay struct {
	cfg        Config
	sink       metricsink.Sink
	ledger     ledger.Ledger
	deadLetter messagepipeline.SimplePublisher
	logger     zerolog.Logger
}

// New creates a Relay. The sink is shared across invocations and records.
func New(cfg Config, sink metricsink.Sink, logger zerolog.Logger, opts ...Option) (*Relay, error) {
	if sink == nil {
		return nil, errors.New("metrics sink cannot be nil")
	}
	if cfg.Namespace == "" {
		cfg.Namespace = metricsink.DefaultNamespace
	}
	r := &Relay{
		cfg:    cfg,
		sink:   sink,
		logger: logger.With().Str("component", "RecordRelay").Str("namespace", cfg.Namespace).Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type tally struct {
	success   atomic.Int64
	failure   atomic.Int64
	duplicate atomic.Int64
}

// Relay processes every record of the batch and returns one outcome per
// record, in input order. Record failures never fail the call; only a batch
// that does not have the expected shape returns an error.
func (r *Relay) Relay(ctx context.Context, batch DeliveryBatch) (BatchResult, error) {
	if err := batch.validate(); err != nil {
		r.logger.Error().Err(err).Str("invocation_id", batch.InvocationID).Msg("Rejecting malformed batch.")
		return BatchResult{}, err
	}

	outcomes := make([]RecordOutcome, len(batch.Records))
	var t tally

	if r.cfg.Concurrency < 2 {
		for i, rec := range batch.Records {
			outcomes[i] = r.relayRecord(ctx, rec, &t)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(r.cfg.Concurrency)
		for i, rec := range batch.Records {
			i, rec := i, rec
			g.Go(func() error {
				outcomes[i] = r.relayRecord(ctx, rec, &t)
				return nil
			})
		}
		g.Wait()
	}

	r.logger.Info().
		Str("invocation_id", batch.InvocationID).
		Int64("success", t.success.Load()).
		Int64("failure", t.failure.Load()).
		Int64("duplicate", t.duplicate.Load()).
		Msgf("Successfully delivered %d records, failed to deliver %d records", t.success.Load(), t.failure.Load())

	return BatchResult{Records: outcomes}, nil
}

func (r *Relay) relayRecord(ctx context.Context, rec DeliveryRecord, t *tally) RecordOutcome {
	logger := r.logger.With().Str("record_id", rec.RecordID).Logger()

	if r.alreadyDelivered(ctx, rec.RecordID, logger) {
		t.duplicate.Add(1)
		t.success.Add(1)
		logger.Debug().Msg("Record already delivered, acknowledging without a write.")
		return RecordOutcome{RecordID: rec.RecordID, Result: ResultOK}
	}

	sample, err := r.deliver(ctx, rec)
	if err != nil {
		t.failure.Add(1)
		logger.Error().Err(err).
			Str("error_kind", string(KindOf(err))).
			Int64("retry_hint", rec.Metadata.RetryHint).
			Msg("Failed to deliver record.")
		r.publishDeadLetter(ctx, rec, err, logger)
		return RecordOutcome{RecordID: rec.RecordID, Result: ResultFailed}
	}

	t.success.Add(1)
	if r.ledger != nil {
		mark := ledger.Mark{MetricName: sample.MetricName}
		if err := r.ledger.MarkDelivered(ctx, rec.RecordID, mark); err != nil {
			logger.Warn().Err(err).Msg("Failed to mark record as delivered.")
		}
	}
	return RecordOutcome{RecordID: rec.RecordID, Result: ResultOK}
}

// deliver runs the whole per-record path. Any error it returns is a *RecordError.
func (r *Relay) deliver(ctx context.Context, rec DeliveryRecord) (metricsink.Sample, error) {
	sample, err := TransformRecord(rec)
	if err != nil {
		return metricsink.Sample{}, err
	}
	r.logger.Debug().
		Str("record_id", rec.RecordID).
		Str("metric_name", sample.MetricName).
		Str("timestamp", sample.FormattedTimestamp()).
		Float64("value", sample.Value).
		Msg("Writing metric sample.")
	if err := r.sink.PutMetricData(ctx, r.cfg.Namespace, []metricsink.Sample{sample}); err != nil {
		return metricsink.Sample{}, newRecordError(KindSinkWrite, err)
	}
	return sample, nil
}

// alreadyDelivered fails open: a ledger error means the record is processed.
func (r *Relay) alreadyDelivered(ctx context.Context, recordID string, logger zerolog.Logger) bool {
	if r.ledger == nil {
		return false
	}
	seen, err := r.ledger.Seen(ctx, recordID)
	if err != nil {
		logger.Warn().Err(err).Msg("Ledger lookup failed, processing record.")
		return false
	}
	return seen
}

// DeadLetter is the message published for a record that could not be delivered.
type DeadLetter struct {
	RecordID string    `json:"recordId"`
	Kind     ErrorKind `json:"kind"`
	Error    string    `json:"error"`
	Data     string    `json:"data"`
}

func (r *Relay) publishDeadLetter(ctx context.Context, rec DeliveryRecord, cause error, logger zerolog.Logger) {
	if r.deadLetter == nil {
		return
	}
	kind := KindOf(cause)
	payload, err := json.Marshal(DeadLetter{
		RecordID: rec.RecordID,
		Kind:     kind,
		Error:    cause.Error(),
		Data:     rec.Data,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to marshal dead letter.")
		return
	}
	attrs := map[string]string{"kind": string(kind), "recordId": rec.RecordID}
	if err := r.deadLetter.Publish(ctx, payload, attrs); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish dead letter.")
	}
}

// Handler adapts the relay to the Lambda runtime's handler signature.
func Handler(r *Relay) func(ctx context.Context, batch DeliveryBatch) (BatchResult, error) {
	return r.Relay
}

// NewSinkProcessor returns a pipeline processor that writes each transformed
// sample to the relay's sink under its namespace. The broker message id is
// used as the ledger key.
func (r *Relay) NewSinkProcessor() messagepipeline.StreamProcessor[metricsink.Sample] {
	return func(ctx context.Context, original messagepipeline.Message, sample *metricsink.Sample) error {
		logger := r.logger.With().Str("msg_id", original.ID).Logger()
		if r.alreadyDelivered(ctx, original.ID, logger) {
			logger.Debug().Msg("Message already delivered, acknowledging without a write.")
			return nil
		}
		if err := r.sink.PutMetricData(ctx, r.cfg.Namespace, []metricsink.Sample{*sample}); err != nil {
			return newRecordError(KindSinkWrite, err)
		}
		if r.ledger != nil {
			if err := r.ledger.MarkDelivered(ctx, original.ID, ledger.Mark{MetricName: sample.MetricName}); err != nil {
				logger.Warn().Err(err).Msg("Failed to mark message as delivered.")
			}
		}
		return nil
	}
}
