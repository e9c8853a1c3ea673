/*
graceperiod.go - Reserve corrections for late payments

ACCOUNTING TREATMENT:
  When a renewal payment arrives after the service start, the days in
  between form the grace period: service was delivered, but no cash was
  received, so no revenue may be recognized. The prior period's accrual
  reserved for this possibility. As each late day elapses, the previous
  period's effective term grows by one day, its blended daily amortization
  rate drops, and the over-reserved difference is drawn down:

    revisedTerm  = prevTermDays + daysLateSoFar
    revisedRate  = fee / revisedTerm
    overReserve  = daysReservedFor x (prevRate - revisedRate)

  Each day posts the increment over the running total to
  DebitReserveGracePeriod, mirrored in CreditContraRevenue, so the reserve
  drawdown converges to the total over-reserved amount.

KNOWN SIMPLIFICATION:
  The previous period's amortization rate is estimated from the CURRENT
  item's fee, not the previous invoice's actual charge. Product has been
  asked to confirm; until then the estimate stands.

AUDIT TRAIL:
  Returns one human-readable line per late day plus header and footer.
  The presentation layer shows these verbatim; nothing downstream computes
  from them.
*/
package revrec

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ApplyGracePeriod corrects a schedule for a late payment, posting the
// day-by-day grace-period reserve drawdown for every day in
// [serviceStart, paymentDate-1]. Call only when paymentDate is after the
// item's service start; Recognize handles that gate.
//
// The schedule must already hold the base amortization for the item.
func ApplyGracePeriod(s *Schedule, item InvoiceItem, paymentDate Date) ([]string, error) {
	prevTermDays := item.BillingPeriod.Days()
	prevServiceEnd := item.ServiceStart.AddDays(-1)
	prevServiceStart := prevServiceEnd.AddDays(-(prevTermDays - 1))
	prevAmort := item.Amount.Div(decimal.NewFromInt(int64(prevTermDays)))

	currentReportingDay := EndOfMonth(item.ServiceStart)
	prevReportingDay := EndOfMonth(prevServiceEnd)

	daysReservedFor, err := DaysElapsed(prevServiceStart, prevReportingDay)
	if err != nil {
		return nil, err
	}

	notes := []string{
		"JOURNAL ENTRIES FOR GRACE PERIOD",
		divider,
		fmt.Sprintf("payment date: %s, current term: %s -> %s, previous term: %s -> %s",
			paymentDate, item.ServiceStart, item.ServiceEnd, prevServiceStart, prevServiceEnd),
		fmt.Sprintf("current reporting day: %s, previous reporting day: %s, days reserved for: %s -> %s",
			currentReportingDay, prevReportingDay, prevServiceStart, prevReportingDay),
	}

	runningTotal := decimal.Zero
	for _, date := range DateRange(item.ServiceStart, paymentDate.AddDays(-1)) {
		daysLate, err := DaysElapsed(item.ServiceStart, date)
		if err != nil {
			return nil, err
		}

		revisedTerm := prevTermDays + daysLate
		revisedAmort := item.Amount.Div(decimal.NewFromInt(int64(revisedTerm)))
		amortDifference := prevAmort.Sub(revisedAmort)
		revisedReserveTotal := decimal.NewFromInt(int64(daysReservedFor)).Mul(amortDifference)

		reserveDebit := revisedReserveTotal.Sub(runningTotal)

		entry, err := s.At(date)
		if err != nil {
			return nil, err
		}
		entry.DebitReserveGracePeriod = reserveDebit
		entry.CreditContraRevenue = reserveDebit

		notes = append(notes, fmt.Sprintf(
			"%s, PrevTerm: %d->%d, PrevAmort: $%s->$%s, DaysReservedFor: %d, PrevTotalReserve: %s, TotalReserve: %s, DR reserve: %s",
			date, prevTermDays, revisedTerm,
			prevAmort.StringFixed(3), revisedAmort.StringFixed(3),
			daysReservedFor,
			runningTotal.StringFixed(3), revisedReserveTotal.StringFixed(3),
			reserveDebit.StringFixed(3)))

		runningTotal = runningTotal.Add(reserveDebit)
	}
	notes = append(notes, divider)

	return notes, nil
}

var divider = "------------------------------------------------------------"
