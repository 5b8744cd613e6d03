package domain

import "errors"

var (
	// ErrMissingSource means a source file does not exist.
	ErrMissingSource = errors.New("source not found")
	// ErrSchemaMismatch means required fields were absent after reconciliation.
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrUnknownSchema  = errors.New("unknown schema")
	ErrNoTransformer  = errors.New("no coordinate transformer configured")
	// ErrOutputWrite means the canonical table could not be persisted.
	ErrOutputWrite = errors.New("write canonical output")
	// ErrNoSources means no configured source produced records.
	ErrNoSources = errors.New("no readable sources")
)

// DropReason classifies a row dropped during normalization.
type DropReason string

const (
	DropInvalidCoordinates DropReason = "invalid_coordinates"
	DropTransformFailed    DropReason = "transform_failed"
)

// SourceError attaches the source path to a per-source failure.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string { return e.Source + ": " + e.Err.Error() }

func (e *SourceError) Unwrap() error { return e.Err }
