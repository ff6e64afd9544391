package services

import (
	"errors"
	"fmt"
)

// Fatal error classes. Only these abort a run and flip the document to
// FAILED; stage-level failures degrade to safe defaults instead.
var (
	// ErrNotFound means the document is absent or belongs to another tenant.
	// Not retryable.
	ErrNotFound = errors.New("document not found")

	// ErrContentUnavailable means no text could be obtained from any of the
	// three content sources.
	ErrContentUnavailable = errors.New("no text content available for document")

	// ErrRunTimeout means the run exceeded its wall-clock budget.
	ErrRunTimeout = errors.New("analysis run exceeded its time budget")

	// ErrRunCancelled means the document was cancelled while a run was in
	// flight. The run stops at its next checkpoint and leaves the stored
	// PENDING state alone; it is a clean stop, not a failure.
	ErrRunCancelled = errors.New("analysis run cancelled")
)

// PersistenceError wraps a failed document write. It is fatal: the error is
// re-surfaced to the external runtime so its retry policy applies.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
