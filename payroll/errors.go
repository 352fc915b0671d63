/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error types in one place for consistency and discoverability.

ERROR CATEGORIES:
  1. Input errors      - unparsable dates, malformed requests
  2. State errors      - schedule invariants violated, wrong order status
  3. Batch errors      - partial failures that are data, not aborts
  4. Source warnings   - an aggregation sub-query failed and was
                         downgraded to an empty sub-collection

PROPAGATION POLICY:
  Sub-source failures during aggregation become SourceWarning values on the
  report; per-item failures during close are collected on the CloseResult.
  Only structurally invalid top-level input (an unparsable target payday)
  is fatal to the caller.
*/
package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a settings key or record does not exist.
	// Settings reads lazily initialize defaults instead of surfacing this.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned for unparsable dates or malformed requests.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidState is returned when an operation is not valid for the
	// record's current state (skip on a non-Active order, checks completed
	// exceeding the schedule count).
	ErrInvalidState = errors.New("invalid state")

	// ErrCloseInProgress is returned when the advisory close lock is held
	// by another run. Close is non-reentrant.
	ErrCloseInProgress = errors.New("close already in progress")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PartialFailureError reports a batch where some items succeeded.
// It is data, not an abort: callers keep the succeeded set.
type PartialFailureError struct {
	Op        string
	Succeeded []string
	Failed    []string
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s: %d succeeded, %d failed (%v)",
		e.Op, len(e.Succeeded), len(e.Failed), e.Failed)
}

// InvalidStateError describes why a record cannot accept an operation.
type InvalidStateError struct {
	Op     string
	ID     string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.ID, e.Reason)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// SourceWarning records a failed aggregation sub-query. The report still
// succeeds with an empty sub-collection; the gap stays visible.
type SourceWarning struct {
	Source string // "overtime", "uniforms", "pto", "locations"
	Err    error
}

func (w SourceWarning) String() string {
	return fmt.Sprintf("%s source unavailable: %v", w.Source, w.Err)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is the caller's fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrNotFound)
}
