package trace

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAvailable means there is no usable artifact yet. Expected; callers
	// keep the coarse per-unit events they already have.
	ErrNotAvailable = errors.New("trace artifact not available")
	// ErrFormatChanged means the artifact exists but no longer has the expected shape
	ErrFormatChanged = errors.New("trace artifact format changed")
)

// Kind classifies an ingest failure
type Kind string

const (
	KindNotAvailable  Kind = "not_available"
	KindFormatChanged Kind = "format_changed"
)

// IngestError wraps an ingest failure with its kind
type IngestError struct {
	Kind Kind
	Err  error
}

func (e *IngestError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap exposes the sentinel for errors.Is as well as the cause
func (e *IngestError) Unwrap() []error {
	sentinel := ErrNotAvailable
	if e.Kind == KindFormatChanged {
		sentinel = ErrFormatChanged
	}
	if e.Err == nil {
		return []error{sentinel}
	}
	return []error{sentinel, e.Err}
}

func notAvailable(format string, args ...any) error {
	return &IngestError{Kind: KindNotAvailable, Err: fmt.Errorf(format, args...)}
}

func formatChanged(format string, args ...any) error {
	return &IngestError{Kind: KindFormatChanged, Err: fmt.Errorf(format, args...)}
}
