package metricsink

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// MetricRow is the BigQuery representation of a sample.
type MetricRow struct {
	Namespace         string    `bigquery:"namespace"`
	MetricName        string    `bigquery:"metric_name"`
	Timestamp         time.Time `bigquery:"timestamp"`
	Value             float64   `bigquery:"value"`
	Unit              string    `bigquery:"unit"`
	StorageResolution int64     `bigquery:"storage_resolution"`
}

// BigQuerySink mirrors samples into a BigQuery table.
type BigQuerySink struct {
	inserter DataBatchInserter[MetricRow]
	logger   zerolog.Logger
}

// NewBigQuerySink creates a sink that writes through the given inserter.
func NewBigQuerySink(inserter DataBatchInserter[MetricRow], logger zerolog.Logger) (*BigQuerySink, error) {
	if inserter == nil {
		return nil, errors.New("inserter cannot be nil")
	}
	return &BigQuerySink{
		inserter: inserter,
		logger:   logger.With().Str("component", "BigQuerySink").Logger(),
	}, nil
}

// PutMetricData inserts one row per sample.
func (s *BigQuerySink) PutMetricData(ctx context.Context, namespace string, samples []Sample) error {
	rows := make([]*MetricRow, 0, len(samples))
	for _, sample := range samples {
		rows = append(rows, &MetricRow{
			Namespace:         namespace,
			MetricName:        sample.MetricName,
			Timestamp:         sample.Timestamp.UTC(),
			Value:             sample.Value,
			Unit:              sample.Unit,
			StorageResolution: int64(sample.StorageResolution),
		})
	}
	return s.inserter.InsertBatch(ctx, rows)
}

// Close closes the underlying inserter.
func (s *BigQuerySink) Close() error {
	return s.inserter.Close()
}
