/*
schedule.go - The per-day revenue recognition ledger

PURPOSE:
  Schedule holds one ledger Entry per calendar day from an item's service
  start through its service end, contiguous with no gaps. It is created
  fresh for each recognition run, mutated in place by the pipeline stages,
  consumed by the monthly rollup, and then discarded or persisted by the
  caller.

REPRESENTATION:
  A dense slice indexed by day offset from the start date. Day-offset
  indexing gives O(1) access and keeps the hot amortization loops cache
  friendly; term extensions grow the slice with zero-valued entries.

INVARIANT:
  EndingDeferredRevenue on day D equals the balance on day D-1 minus that
  day's amortization, adjusted by any refund or extension posted on D.

SEE ALSO:
  - amortize.go: fills the base schedule
  - rollup.go: aggregates it into monthly entries
*/
package revrec

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// ENTRY - One day's debits and credits
// =============================================================================

// Entry is the ledger record for a single calendar day. All fields are
// monetary amounts defaulting to zero. Debits and credits are stored as
// positive magnitudes; the field name carries the side.
type Entry struct {
	CreditRevenue           decimal.Decimal // revenue recognized this day
	DebitDeferredRevenue    decimal.Decimal // deferred revenue released this day
	EndingDeferredRevenue   decimal.Decimal // deferred revenue balance at end of day
	CumulativeRevenue       decimal.Decimal // running total of recognized revenue
	CreditRefundPayable     decimal.Decimal // owed back to the customer
	DebitReserveRefund      decimal.Decimal // drawn from the refund reserve
	DebitContraRevenue      decimal.Decimal // revenue offset for refunds
	DebitReserveGracePeriod decimal.Decimal // drawn from the grace-period reserve
	CreditContraRevenue     decimal.Decimal // contra-revenue release for grace period
}

// =============================================================================
// SCHEDULE - Contiguous daily ledger for one invoice item
// =============================================================================

type Schedule struct {
	start   Date
	entries []Entry
}

// NewSchedule creates an all-zero schedule covering [start, end] inclusive.
func NewSchedule(start, end Date) (*Schedule, error) {
	days, err := DaysElapsed(start, end)
	if err != nil {
		return nil, err
	}
	return &Schedule{start: start, entries: make([]Entry, days)}, nil
}

func (s *Schedule) Start() Date { return s.start }
func (s *Schedule) End() Date   { return s.start.AddDays(len(s.entries) - 1) }
func (s *Schedule) Len() int    { return len(s.entries) }

// Contains reports whether d falls within the schedule's range.
func (s *Schedule) Contains(d Date) bool {
	return d.AfterOrEqual(s.start) && d.BeforeOrEqual(s.End())
}

// At returns a mutable reference to the entry for d.
func (s *Schedule) At(d Date) (*Entry, error) {
	if !s.Contains(d) {
		return nil, &ScheduleDateError{Date: d, ScheduleStart: s.start, ScheduleEnd: s.End()}
	}
	offset, _ := DaysElapsed(s.start, d)
	return &s.entries[offset-1], nil
}

// EntryOn returns a copy of the entry for d, or a zero entry with an error
// when d is outside the schedule.
func (s *Schedule) EntryOn(d Date) (Entry, error) {
	e, err := s.At(d)
	if err != nil {
		return Entry{}, err
	}
	return *e, nil
}

// ExtendThrough grows the schedule with zero-valued entries so it covers
// newEnd. A newEnd at or before the current end is a no-op.
func (s *Schedule) ExtendThrough(newEnd Date) {
	if newEnd.BeforeOrEqual(s.End()) {
		return
	}
	extra, _ := DaysElapsed(s.End().AddDays(1), newEnd)
	s.entries = append(s.entries, make([]Entry, extra)...)
}

// Dates returns every date the schedule covers, in order.
func (s *Schedule) Dates() []Date {
	return DateRange(s.start, s.End())
}

// CumulativeRevenueBefore sums CreditRevenue for all days strictly before d.
// Used to snapshot recognized revenue as of the start of a refund date.
func (s *Schedule) CumulativeRevenueBefore(d Date) decimal.Decimal {
	total := decimal.Zero
	for i, date := 0, s.start; i < len(s.entries) && date.Before(d); i, date = i+1, date.AddDays(1) {
		total = total.Add(s.entries[i].CreditRevenue)
	}
	return total
}
