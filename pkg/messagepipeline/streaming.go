package messagepipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// StreamingService consumes messages, transforms them individually and hands
// each one straight to a StreamProcessor. Successful messages are Acked,
// failed ones Nacked, skipped ones Acked without processing.
type StreamingService[T any] struct {
	numWorkers  int
	consumer    MessageConsumer
	transformer MessageTransformer[T]
	processor   StreamProcessor[T]
	logger      zerolog.Logger
	wg          sync.WaitGroup

	processed atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
}

// StreamingServiceConfig holds configuration for a StreamingService.
type StreamingServiceConfig struct {
	NumWorkers int
}

// StreamingStats is a snapshot of the service's counters.
type StreamingStats struct {
	Processed int64
	Failed    int64
	Skipped   int64
}

// NewStreamingService creates a new StreamingService.
func NewStreamingService[T any](
	cfg StreamingServiceConfig,
	consumer MessageConsumer,
	transformer MessageTransformer[T],
	processor StreamProcessor[T],
	logger zerolog.Logger,
) (*StreamingService[T], error) {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 5
	}
	if consumer == nil {
		return nil, fmt.Errorf("consumer cannot be nil")
	}
	if transformer == nil {
		return nil, fmt.Errorf("transformer cannot be nil")
	}
	if processor == nil {
		return nil, fmt.Errorf("processor cannot be nil")
	}

	return &StreamingService[T]{
		numWorkers:  cfg.NumWorkers,
		consumer:    consumer,
		transformer: transformer,
		processor:   processor,
		logger:      logger.With().Str("service", "StreamingService").Logger(),
	}, nil
}

// Start starts the consumer and then a pool of workers.
func (s *StreamingService[T]) Start(ctx context.Context) error {
	if err := s.consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start message consumer: %w", err)
	}

	s.logger.Info().Int("worker_count", s.numWorkers).Msg("Starting relay workers...")
	s.wg.Add(s.numWorkers)
	for i := 0; i < s.numWorkers; i++ {
		go s.worker(ctx, i)
	}
	return nil
}

// Stop stops the consumer first, then waits for in-flight messages.
func (s *StreamingService[T]) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping streaming service...")

	if err := s.consumer.Stop(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Error during consumer stop, continuing shutdown.")
	}

	workerDone := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(workerDone)
	}()

	select {
	case <-workerDone:
	case <-ctx.Done():
		s.logger.Error().Err(ctx.Err()).Msg("Timeout waiting for relay workers to finish.")
		return ctx.Err()
	}

	stats := s.Stats()
	s.logger.Info().
		Int64("processed", stats.Processed).
		Int64("failed", stats.Failed).
		Int64("skipped", stats.Skipped).
		Msg("Streaming service stopped.")
	return nil
}

// Stats returns the current counters.
func (s *StreamingService[T]) Stats() StreamingStats {
	return StreamingStats{
		Processed: s.processed.Load(),
		Failed:    s.failed.Load(),
		Skipped:   s.skipped.Load(),
	}
}

func (s *StreamingService[T]) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug().Int("worker_id", workerID).Msg("Relay worker shutting down due to context cancellation.")
			return
		case msg, ok := <-s.consumer.Messages():
			if !ok {
				s.logger.Debug().Int("worker_id", workerID).Msg("Consumer channel closed, worker exiting.")
				return
			}
			s.processConsumedMessage(ctx, msg)
		}
	}
}

func (s *StreamingService[T]) processConsumedMessage(ctx context.Context, msg Message) {
	transformedPayload, skip, err := s.transformer(ctx, &msg)
	if err != nil {
		s.failed.Add(1)
		s.logger.Error().Err(err).Str("msg_id", msg.ID).Msg("Failed to transform message, Nacking.")
		nack(msg)
		return
	}

	if skip {
		s.skipped.Add(1)
		s.logger.Debug().Str("msg_id", msg.ID).Msg("Transformer signaled to skip message, Acking.")
		ack(msg)
		return
	}

	if err := s.processor(ctx, msg, transformedPayload); err != nil {
		s.failed.Add(1)
		s.logger.Error().Err(err).Str("msg_id", msg.ID).Msg("Processor failed to handle message, Nacking.")
		nack(msg)
		return
	}

	s.processed.Add(1)
	ack(msg)
}

func ack(msg Message) {
	if msg.Ack != nil {
		msg.Ack()
	}
}

func nack(msg Message) {
	if msg.Nack != nil {
		msg.Nack()
	}
}
