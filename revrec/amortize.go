/*
amortize.go - Base schedule construction and the generic re-amortization
primitive

AMORTIZATION MODEL:
  Deferred revenue does not exist until cash is received. On the payment
  date the deferred balance jumps to the full fee; from then on, each day
  releases amount/daysRemaining into revenue until the service end.

  AmortizeRemaining is the single reusable primitive: refunds and term
  extensions both re-spread a remaining balance evenly over a new window
  by overwriting the revenue and deferred-revenue columns.

SEE ALSO:
  - graceperiod.go: reserve corrections for late payments
  - refund.go, extension.go: consumers of AmortizeRemaining
*/
package revrec

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// BASE SCHEDULE
// =============================================================================

// AmortizeServiceFee builds the base daily schedule for an invoice item.
// The schedule covers [serviceStart, serviceEnd]; recognition begins on the
// payment date (or the service start, if paid early) and runs through the
// service end.
//
// Days before the payment date carry all-zero entries. If the payment lands
// after the service end, nothing is ever recognized and the schedule stays
// all-zero; Recognize surfaces that case to the caller as-is.
func AmortizeServiceFee(item InvoiceItem, paymentDate Date) (*Schedule, error) {
	schedule, err := NewSchedule(item.ServiceStart, item.ServiceEnd)
	if err != nil {
		return nil, err
	}

	recognitionStart := MaxDate(paymentDate, item.ServiceStart)
	if recognitionStart.After(item.ServiceEnd) {
		return schedule, nil
	}

	days, err := DaysElapsed(recognitionStart, item.ServiceEnd)
	if err != nil {
		return nil, err
	}
	dailyAmort := item.Amount.Div(decimal.NewFromInt(int64(days)))

	var (
		deferred = decimal.Zero
		revenue  = decimal.Zero
		cumul    = decimal.Zero
	)

	for _, date := range schedule.Dates() {
		// The deferred balance materializes on the payment date and starts
		// amortizing the same day.
		if date.Equal(paymentDate) || (date.Equal(item.ServiceStart) && paymentDate.Before(item.ServiceStart)) {
			deferred = item.Amount
			revenue = dailyAmort
		}
		if date.AfterOrEqual(recognitionStart) {
			deferred = deferred.Sub(dailyAmort)
			cumul = cumul.Add(revenue)
		}

		entry, _ := schedule.At(date)
		entry.CreditRevenue = revenue
		entry.DebitDeferredRevenue = revenue
		entry.EndingDeferredRevenue = deferred
		entry.CumulativeRevenue = cumul
	}

	return schedule, nil
}

// =============================================================================
// GENERIC RE-AMORTIZATION
// =============================================================================

// AmortizeRemaining spreads amount evenly over [start, end], overwriting the
// revenue and deferred-revenue columns for every day in the window. The
// running deferred balance starts at amount and ends at zero.
//
// Other columns (reserves, refund payable, cumulative revenue) are left
// untouched: a re-amortization reshapes future recognition, it does not
// restate past postings.
func AmortizeRemaining(s *Schedule, amount decimal.Decimal, start, end Date) error {
	days, err := DaysElapsed(start, end)
	if err != nil {
		return err
	}
	if !s.Contains(start) || !s.Contains(end) {
		return &ScheduleDateError{Date: end, ScheduleStart: s.Start(), ScheduleEnd: s.End()}
	}

	dailyAmort := amount.Div(decimal.NewFromInt(int64(days)))
	deferred := amount

	for _, date := range DateRange(start, end) {
		deferred = deferred.Sub(dailyAmort)
		entry, _ := s.At(date)
		entry.CreditRevenue = dailyAmort
		entry.DebitDeferredRevenue = dailyAmort
		entry.EndingDeferredRevenue = deferred
	}
	return nil
}
