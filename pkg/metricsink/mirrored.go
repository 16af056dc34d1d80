package metricsink

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// MirroredSink writes to a primary sink and then to any number of mirrors.
// Only the primary's result is reported; mirror failures are logged.
type MirroredSink struct {
	primary Sink
	mirrors []Sink
	logger  zerolog.Logger
}

// NewMirroredSink creates a MirroredSink.
func NewMirroredSink(primary Sink, logger zerolog.Logger, mirrors ...Sink) (*MirroredSink, error) {
	if primary == nil {
		return nil, errors.New("primary sink cannot be nil")
	}
	return &MirroredSink{
		primary: primary,
		mirrors: mirrors,
		logger:  logger.With().Str("component", "MirroredSink").Logger(),
	}, nil
}

// PutMetricData writes to the primary. Mirrors are only written after the
// primary accepted the samples.
func (m *MirroredSink) PutMetricData(ctx context.Context, namespace string, samples []Sample) error {
	if err := m.primary.PutMetricData(ctx, namespace, samples); err != nil {
		return err
	}
	for i, mirror := range m.mirrors {
		if err := mirror.PutMetricData(ctx, namespace, samples); err != nil {
			m.logger.Warn().Err(err).Int("mirror_index", i).Msg("Mirror sink failed, ignoring.")
		}
	}
	return nil
}
