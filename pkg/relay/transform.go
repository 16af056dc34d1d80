package relay

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/illmade-knight/go-metricsrelay/pkg/messagepipeline"
	"github.com/illmade-knight/go-metricsrelay/pkg/metricsink"
	"github.com/rs/zerolog"
)

// Payload field names written by the analytics application.
const (
	fieldMetricName    = "AD"
	fieldIngestionTime = "INGESTION_TIME"
	fieldValue         = "NBR"
)

// Bounds of INGESTION_TIME in epoch milliseconds (years 0001 to 9999).
const (
	minIngestionMillis = -62135596800000
	maxIngestionMillis = 253402300799999
)

// Payload is the decoded content of a delivery record.
type Payload struct {
	// AD carries the metric identity, e.g. "Clicked" or "Not clicked".
	AD            string
	IngestionTime float64 // epoch milliseconds
	NBR           float64
}

// Sample converts the payload into a metric sample at whole-second resolution.
func (p Payload) Sample() metricsink.Sample {
	secs := math.Floor(p.IngestionTime / 1000)
	return metricsink.Sample{
		MetricName:        p.AD,
		Timestamp:         time.Unix(int64(secs), 0).UTC(),
		Value:             p.NBR,
		Unit:              metricsink.UnitNone,
		StorageResolution: 1,
	}
}

// DecodeData base64-decodes a record's data field.
func DecodeData(data string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, newRecordError(KindDecode, err)
	}
	return decoded, nil
}

// ParsePayload parses and validates a decoded payload.
func ParsePayload(raw []byte) (Payload, error) {
	if !json.Valid(raw) {
		return Payload{}, newRecordError(KindParse, errors.New("payload is not well-formed JSON"))
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Payload{}, newRecordError(KindSchema, errors.New("payload is not a JSON object"))
	}

	var p Payload
	var err error
	if p.AD, err = stringField(fields, fieldMetricName); err != nil {
		return Payload{}, err
	}
	if p.IngestionTime, err = numberField(fields, fieldIngestionTime); err != nil {
		return Payload{}, err
	}
	if p.IngestionTime < minIngestionMillis || p.IngestionTime > maxIngestionMillis {
		return Payload{}, newRecordError(KindSchema, fmt.Errorf("field %s out of range: %v", fieldIngestionTime, p.IngestionTime))
	}
	if p.NBR, err = numberField(fields, fieldValue); err != nil {
		return Payload{}, err
	}
	return p, nil
}

// TransformRecord decodes, parses and converts one delivery record.
func TransformRecord(rec DeliveryRecord) (metricsink.Sample, error) {
	raw, err := DecodeData(rec.Data)
	if err != nil {
		return metricsink.Sample{}, err
	}
	payload, err := ParsePayload(raw)
	if err != nil {
		return metricsink.Sample{}, err
	}
	return payload.Sample(), nil
}

// NewPayloadTransformer exposes the payload conversion as a pipeline
// transformer for brokers that carry the JSON payload unencoded. Invalid
// payloads are skipped rather than Nacked: redelivery cannot fix them.
func NewPayloadTransformer(logger zerolog.Logger) messagepipeline.MessageTransformer[metricsink.Sample] {
	logger = logger.With().Str("component", "PayloadTransformer").Logger()
	return func(_ context.Context, msg *messagepipeline.Message) (*metricsink.Sample, bool, error) {
		payload, err := ParsePayload(msg.Payload)
		if err != nil {
			logger.Warn().Err(err).Str("msg_id", msg.ID).Str("error_kind", string(KindOf(err))).Msg("Skipping invalid payload.")
			return nil, true, nil
		}
		sample := payload.Sample()
		return &sample, false, nil
	}
}

func rawField(fields map[string]json.RawMessage, name string) (json.RawMessage, error) {
	raw, ok := fields[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, newRecordError(KindSchema, fmt.Errorf("missing required field %s", name))
	}
	return raw, nil
}

func stringField(fields map[string]json.RawMessage, name string) (string, error) {
	raw, err := rawField(fields, name)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", newRecordError(KindSchema, fmt.Errorf("field %s must be a string", name))
	}
	return s, nil
}

func numberField(fields map[string]json.RawMessage, name string) (float64, error) {
	raw, err := rawField(fields, name)
	if err != nil {
		return 0, err
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, newRecordError(KindSchema, fmt.Errorf("field %s must be a number", name))
	}
	return f, nil
}
