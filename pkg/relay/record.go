// Package relay turns Kinesis Analytics output delivery records into CloudWatch
// custom metrics and reports a per-record delivery status back to the stream.
package relay

import (
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
)

// Per-record results understood by Kinesis Analytics.
const (
	ResultOK     = events.KinesisAnalyticsOutputDeliveryOK
	ResultFailed = events.KinesisAnalyticsOutputDeliveryFailed
)

// BatchResult is the response returned to the stream for one invocation.
type BatchResult = events.KinesisAnalyticsOutputDeliveryResponse

// RecordOutcome is the delivery status of one record.
type RecordOutcome = events.KinesisAnalyticsOutputDeliveryResponseRecord

// DeliveryBatch is the event delivered by a Kinesis Analytics Lambda output.
//
// Data is kept as the raw base64 string rather than []byte so that one bad
// record fails on its own instead of failing the whole event decode.
type DeliveryBatch struct {
	InvocationID   string           `json:"invocationId"`
	ApplicationARN string           `json:"applicationArn"`
	Records        []DeliveryRecord `json:"records"`
}

// DeliveryRecord is a single record inside a DeliveryBatch.
type DeliveryRecord struct {
	RecordID string                 `json:"recordId"`
	Data     string                 `json:"data"`
	Metadata DeliveryRecordMetadata `json:"lambdaDeliveryRecordMetadata"`
}

// DeliveryRecordMetadata carries the stream's retry hint. It is logged but
// otherwise ignored.
type DeliveryRecordMetadata struct {
	RetryHint int64 `json:"retryHint"`
}

// UnmarshalJSON rejects a record that has no recordId key, since no outcome
// could be reported for it. An empty id is accepted and echoed back.
func (r *DeliveryRecord) UnmarshalJSON(data []byte) error {
	type plain DeliveryRecord
	var raw struct {
		plain
		RecordID *string `json:"recordId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.RecordID == nil {
		return &BatchError{Reason: "record without recordId"}
	}
	*r = DeliveryRecord(raw.plain)
	r.RecordID = *raw.RecordID
	return nil
}

func (b DeliveryBatch) validate() error {
	if b.Records == nil {
		return &BatchError{Reason: "missing records"}
	}
	return nil
}
