package engine

import (
	"fmt"

	"roundkids/internal/model"
	"roundkids/internal/source"
)

// InvalidTransitionError rejects an operation that is not legal for
// the alert's current live status. Raised before any write happens.
type InvalidTransitionError struct {
	Ref  model.Ref
	Op   source.Op
	From model.LiveStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s on %s/%s (live status %s)",
		e.Op, e.Ref.Source, e.Ref.ID, e.From)
}

// WriteError wraps a failed single-row write. The caller must not
// assume the transition happened; no compensating write is attempted.
type WriteError struct {
	Ref model.Ref
	Op  source.Op
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s on %s/%s: %v", e.Op, e.Ref.Source, e.Ref.ID, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// SourceUnavailableError records one reader failing during a fetch
// cycle. The fetch degrades that source to zero records instead of
// failing the whole cycle.
type SourceUnavailableError struct {
	Source model.Source
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}
