// Package metricsink provides the destinations that relayed metric samples are
// written to. The primary destination is Amazon CloudWatch; BigQuery can be
// attached as a mirror for offline analysis.
package metricsink

import (
	"context"
	"time"
)

// DefaultNamespace is the metric namespace used when none is configured.
const DefaultNamespace = "BidRequestExperiment"

// UnitNone is the only unit the relay emits.
const UnitNone = "None"

// TimestampLayout renders a sample timestamp at whole-second resolution.
const TimestampLayout = "2006-01-02T15:04:05"

// Sample is a single custom metric data point.
type Sample struct {
	MetricName string
	// Timestamp is always truncated to whole seconds and expressed in UTC.
	Timestamp         time.Time
	Value             float64
	Unit              string
	StorageResolution int32
}

// FormattedTimestamp returns the ISO-8601 second-precision rendering of the timestamp.
func (s Sample) FormattedTimestamp() string {
	return s.Timestamp.UTC().Format(TimestampLayout)
}

// Sink is the contract for a metrics backend.
type Sink interface {
	PutMetricData(ctx context.Context, namespace string, samples []Sample) error
}

// SinkFunc adapts an ordinary function to the Sink interface.
type SinkFunc func(ctx context.Context, namespace string, samples []Sample) error

// PutMetricData calls f.
func (f SinkFunc) PutMetricData(ctx context.Context, namespace string, samples []Sample) error {
	return f(ctx, namespace, samples)
}
