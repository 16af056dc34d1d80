package relay

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a record could not be delivered.
type ErrorKind string

const (
	KindDecode    ErrorKind = "DecodeError"
	KindParse     ErrorKind = "ParseError"
	KindSchema    ErrorKind = "SchemaError"
	KindSinkWrite ErrorKind = "SinkWriteError"
)

// Sentinels for use with errors.Is.
var (
	ErrDecode    = &RecordError{Kind: KindDecode}
	ErrParse     = &RecordError{Kind: KindParse}
	ErrSchema    = &RecordError{Kind: KindSchema}
	ErrSinkWrite = &RecordError{Kind: KindSinkWrite}

	// ErrMalformedBatch matches any BatchError.
	ErrMalformedBatch = errors.New("malformed delivery batch")
)

// RecordError is the failure of a single record. Every kind currently maps to
// a DeliveryFailed result.
type RecordError struct {
	Kind ErrorKind
	Err  error
}

func (e *RecordError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Is matches another RecordError of the same kind that carries no cause,
// which makes the package sentinels usable with errors.Is.
func (e *RecordError) Is(target error) bool {
	t, ok := target.(*RecordError)
	return ok && t.Err == nil && t.Kind == e.Kind
}

func newRecordError(kind ErrorKind, err error) *RecordError {
	return &RecordError{Kind: kind, Err: err}
}

// KindOf returns the kind of a record error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var re *RecordError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// BatchError reports an input batch that does not have the expected shape.
// It is the only error that fails a whole invocation.
type BatchError struct {
	Reason string
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%v: %s", ErrMalformedBatch, e.Reason)
}

func (e *BatchError) Is(target error) bool { return target == ErrMalformedBatch }
