package messagepipeline

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
)

// PayloadSizeLimits bounds the payload length, in bytes, of messages that
// reach a transformer. Both bounds are inclusive.
type PayloadSizeLimits struct {
	MinBytes int
	MaxBytes int
}

// LoadPayloadSizeLimitsFromEnv reads PUBSUB_MIN_PAYLOAD_BYTES and
// PUBSUB_MAX_PAYLOAD_BYTES over the given defaults.
func LoadPayloadSizeLimitsFromEnv(defaults PayloadSizeLimits) (PayloadSizeLimits, error) {
	limits := defaults
	for _, v := range []struct {
		name string
		dst  *int
	}{
		{"PUBSUB_MIN_PAYLOAD_BYTES", &limits.MinBytes},
		{"PUBSUB_MAX_PAYLOAD_BYTES", &limits.MaxBytes},
	} {
		raw := os.Getenv(v.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return PayloadSizeLimits{}, fmt.Errorf("invalid %s %q", v.name, raw)
		}
		*v.dst = n
	}
	if limits.MaxBytes < limits.MinBytes {
		return PayloadSizeLimits{}, fmt.Errorf("payload size limits inverted: min %d > max %d", limits.MinBytes, limits.MaxBytes)
	}
	return limits, nil
}

// WithPayloadSizeLimits skips (and so Acks) any message whose payload falls
// outside limits. Other messages go to next unchanged.
func WithPayloadSizeLimits[T any](next MessageTransformer[T], limits PayloadSizeLimits, logger zerolog.Logger) MessageTransformer[T] {
	logger = logger.With().Str("component", "PayloadSizeFilter").Logger()
	return func(ctx context.Context, msg *Message) (*T, bool, error) {
		size := len(msg.Payload)
		switch {
		case size < limits.MinBytes:
			logger.Warn().Str("msg_id", msg.ID).Int("payload_size", size).Int("min_bytes", limits.MinBytes).Msg("Skipping undersized message.")
			return nil, true, nil
		case size > limits.MaxBytes:
			logger.Warn().Str("msg_id", msg.ID).Int("payload_size", size).Int("max_bytes", limits.MaxBytes).Msg("Skipping oversized message.")
			return nil, true, nil
		}
		return next(ctx, msg)
	}
}
