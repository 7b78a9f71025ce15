package processors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRecord marks a record that failed validation or normalization.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrMissingInput marks a reconciliation attempted with an empty company or bank set.
	ErrMissingInput = errors.New("missing input")
	// ErrExtraction marks a failure of the upstream extraction step.
	ErrExtraction = errors.New("extraction error")
)

// RecordError names the field that made a record unusable.
type RecordError struct {
	Field  string
	Value  string
	Reason string
}

func (e *RecordError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s: %s", ErrInvalidRecord, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s %q: %s", ErrInvalidRecord, e.Field, e.Value, e.Reason)
}

func (e *RecordError) Unwrap() error { return ErrInvalidRecord }

// ExtractionError is a per-record rejection produced by the extraction contract validator.
// Index is the zero-based position of the record in the extracted batch.
type ExtractionError struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: record %d: %s: %s", ErrInvalidRecord, e.Index, e.Field, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return ErrInvalidRecord }

// positionedError attaches an input position to a normalization failure.
type positionedError struct {
	side     string
	position int
	err      error
}

func (e *positionedError) Error() string {
	return fmt.Sprintf("%s record %d: %v", e.side, e.position, e.err)
}

func (e *positionedError) Unwrap() error { return e.err }
