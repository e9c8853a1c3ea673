/*
refund.go - Refund journal entries and schedule adjustment

ACCOUNTING TREATMENT:
  Cancellation refund: service stops, so the refund comes out of deferred
  revenue first; any excess is a refund of already-recognized revenue.

  Non-cancellation refund (customer service issue, service continues): the
  refund comes out of recognized revenue first; the remainder debits
  deferred revenue.

  A refund of revenue is split between contra-revenue (the share earned in
  the current reporting month) and the reserve for refunds (the rest).

  Identity over every ComputeRefundEntries output:
  dr_defrev + dr_reserve + dr_contra == cr_payable.

AFTERMATH:
  Cancellation recognizes all remaining deferred revenue on the refund day
  and zeroes every later day. Otherwise the remaining balance re-amortizes
  through the end of the schedule via AmortizeRemaining, which overwrites
  the refund day's DebitDeferredRevenue with the resumed daily
  amortization. The journal's deferred debit lives in the day's balance
  arithmetic, not as a ledger line of its own.

SAME-DAY REFUNDS:
  Postings on the refund date overwrite, not accumulate. Two refunds on
  the same date must be pre-aggregated by the caller.
*/
package revrec

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REFUND JOURNAL ENTRIES
// =============================================================================

// RefundEntries are the four postings a refund makes on its effective day.
type RefundEntries struct {
	DebitDeferredRevenue decimal.Decimal
	DebitReserveRefund   decimal.Decimal
	DebitContraRevenue   decimal.Decimal
	CreditRefundPayable  decimal.Decimal
}

// ComputeRefundEntries computes the journal entries for a refund effective
// on refundDate, given the deferred-revenue balance and cumulative
// recognized revenue as of the start of that day.
//
// recognitionStart is the schedule's first day; a refund on that day has
// zero days serviced and cannot be prorated.
func ComputeRefundEntries(cancellation bool, recognitionStart, refundDate Date, refundApplied, endingDeferred, cumulativeRevenue decimal.Decimal) (RefundEntries, error) {
	elapsed, err := DaysElapsed(recognitionStart, refundDate)
	if err != nil {
		return RefundEntries{}, err
	}
	daysServicedTotal := elapsed - 1
	if daysServicedTotal == 0 {
		return RefundEntries{}, fmt.Errorf("refund on %s, first day of recognition: %w", refundDate, ErrZeroDayAmortization)
	}

	daysServicedInMonth := refundDate.Day() - 1
	if daysServicedTotal < daysServicedInMonth {
		daysServicedInMonth = daysServicedTotal
	}

	deferred := endingDeferred.Abs()
	revenue := cumulativeRevenue.Abs()

	var debitDeferred, refundOfRevenue decimal.Decimal
	if cancellation {
		// Service stops: refund against deferred revenue first.
		debitDeferred = decimal.Min(refundApplied, deferred)
		refundOfRevenue = decimal.Max(decimal.Zero, refundApplied.Sub(debitDeferred))
	} else {
		// Service continues: refund against recognized revenue first.
		refundOfRevenue = decimal.Min(refundApplied, revenue)
		debitDeferred = refundApplied.Sub(refundOfRevenue)
	}

	debitContra := refundOfRevenue.
		Mul(decimal.NewFromInt(int64(daysServicedInMonth))).
		Div(decimal.NewFromInt(int64(daysServicedTotal)))

	return RefundEntries{
		DebitDeferredRevenue: debitDeferred,
		DebitReserveRefund:   refundOfRevenue.Sub(debitContra),
		DebitContraRevenue:   debitContra,
		CreditRefundPayable:  refundApplied,
	}, nil
}

// =============================================================================
// SCHEDULE ADJUSTMENT
// =============================================================================

// ApplyRefunds adjusts a schedule for each refund in caller-supplied order
// (source order must be chronological). Refunds are prorated to the item by
// its share of the invoice total.
func ApplyRefunds(s *Schedule, invoiceAmount decimal.Decimal, item InvoiceItem, refunds []Refund) error {
	if invoiceAmount.IsZero() && len(refunds) > 0 {
		return fmt.Errorf("refund proration over zero invoice amount: %w", ErrZeroDayAmortization)
	}

	for _, ref := range refunds {
		proportion := item.Amount.Div(invoiceAmount)
		refundApplied := ref.Amount.Mul(proportion)
		lastDay := s.End()

		// Balances as of the beginning of the refund date, i.e. the close of
		// the day before.
		before, err := s.EntryOn(ref.Date.AddDays(-1))
		if err != nil {
			return err
		}
		cumulativeRevenue := s.CumulativeRevenueBefore(ref.Date)

		entries, err := ComputeRefundEntries(ref.Cancellation, s.Start(), ref.Date,
			refundApplied, before.EndingDeferredRevenue, cumulativeRevenue)
		if err != nil {
			return err
		}

		remaining := before.EndingDeferredRevenue.Sub(entries.DebitDeferredRevenue)

		day, err := s.At(ref.Date)
		if err != nil {
			return err
		}
		day.DebitDeferredRevenue = entries.DebitDeferredRevenue
		day.DebitReserveRefund = entries.DebitReserveRefund
		day.DebitContraRevenue = entries.DebitContraRevenue
		day.CreditRefundPayable = entries.CreditRefundPayable

		if ref.Cancellation {
			// Remaining deferred revenue is recognized entirely on the refund
			// day; everything after it is dead schedule.
			day.CreditRevenue = remaining
			day.CumulativeRevenue = before.CumulativeRevenue.Add(remaining)
			day.EndingDeferredRevenue = decimal.Zero

			for _, date := range DateRange(ref.Date.AddDays(1), lastDay) {
				e, err := s.At(date)
				if err != nil {
					return err
				}
				e.CreditRevenue = decimal.Zero
				e.DebitDeferredRevenue = decimal.Zero
				e.EndingDeferredRevenue = decimal.Zero
				e.CumulativeRevenue = decimal.Zero
			}
		} else {
			if err := AmortizeRemaining(s, remaining, ref.Date, lastDay); err != nil {
				return err
			}
		}
	}
	return nil
}
