/*
errors.go - Centralized error types for the recognition engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers branch on sentinels with errors.Is and recover details from
  the structured types with errors.As.

ERROR CATEGORIES:
  1. Range errors - a date window with end before start
  2. Amortization errors - a window collapsing to zero recognizable days
  3. Schedule errors - an event referencing a date the schedule doesn't cover
  4. Input errors - recognition requested for an unpaid invoice

PROPAGATION:
  Every error is local to one invoice item's run. The orchestrator decides
  whether to abort or skip-and-continue; no partial schedule is ever
  returned alongside an error.

SEE ALSO:
  - amortize.go, refund.go, extension.go: producers of these errors
  - recognize.go: the per-item pipeline that surfaces them
*/
package revrec

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRange is returned when a date range ends before it starts.
	ErrInvalidRange = errors.New("invalid range: end before start")

	// ErrZeroDayAmortization is returned when an amortization or proration
	// window collapses to zero days. It is guarded explicitly so the engine
	// never divides by zero or posts infinities.
	ErrZeroDayAmortization = errors.New("amortization period has zero days")

	// ErrDateOutsideSchedule is returned when a refund or extension
	// references a date the schedule does not cover and no auto-extension
	// applies.
	ErrDateOutsideSchedule = errors.New("date outside schedule range")

	// ErrUnpaidInvoice is returned when recognition is requested for an item
	// whose invoice has no qualifying payment. The engine rejects rather
	// than silently computing a zero schedule.
	ErrUnpaidInvoice = errors.New("invoice has no qualifying payment")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RangeError reports an inverted date range.
type RangeError struct {
	Start Date
	End   Date
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range: end %s before start %s", e.End, e.Start)
}

func (e *RangeError) Unwrap() error { return ErrInvalidRange }

// ScheduleDateError reports an event date falling outside a schedule.
type ScheduleDateError struct {
	Date          Date
	ScheduleStart Date
	ScheduleEnd   Date
}

func (e *ScheduleDateError) Error() string {
	return fmt.Sprintf("date %s outside schedule %s..%s", e.Date, e.ScheduleStart, e.ScheduleEnd)
}

func (e *ScheduleDateError) Unwrap() error { return ErrDateOutsideSchedule }

// ItemError wraps an error with the invoice item it occurred on, so a
// caller processing many items can report which one failed.
type ItemError struct {
	ItemID string
	Err    error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %s: %v", e.ItemID, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsInputError returns true if the error is due to invalid caller input
// rather than an engine defect.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrZeroDayAmortization) ||
		errors.Is(err, ErrDateOutsideSchedule) ||
		errors.Is(err, ErrUnpaidInvoice)
}
