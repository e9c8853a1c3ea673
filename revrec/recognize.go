/*
recognize.go - Per-item recognition pipeline

PIPELINE ORDER (significant, later stages read earlier stages' balances):
 1. AmortizeServiceFee  - base daily schedule from fee + payment date
 2. ApplyGracePeriod    - reserve drawdown when the payment was late
 3. ApplyTermExtensions - re-amortize over extended service windows
 4. ApplyRefunds        - journal entries + cancellation or re-amortization
 5. RollupMonths        - monthly aggregates for reporting

The engine processes exactly one invoice item per call. Items are
independent; callers may fan out across items however they like, but the
stage order within an item is fixed here and nowhere else.
*/
package revrec

// RecognitionInput carries everything one item's recognition needs. Refunds
// and extensions must be in chronological order; the engine processes them
// as given.
type RecognitionInput struct {
	Invoice    Invoice
	Item       InvoiceItem
	Payment    *Payment
	Refunds    []Refund
	Extensions []TermExtension
}

// Recognition is the result of one item's run: the daily ledger, its
// monthly rollup, and the grace-period audit trail (empty when the payment
// was on time).
type Recognition struct {
	Schedule   *Schedule
	Months     MonthlyRollup
	GraceNotes []string
}

// Recognize builds the complete revenue-recognition result for one invoice
// item. It returns an error, never a partial result: a failed run leaves
// nothing safe to persist.
func Recognize(in RecognitionInput) (*Recognition, error) {
	if !in.Invoice.Paid(in.Payment) {
		return nil, &ItemError{ItemID: in.Item.ID, Err: ErrUnpaidInvoice}
	}

	schedule, err := AmortizeServiceFee(in.Item, in.Payment.Date)
	if err != nil {
		return nil, &ItemError{ItemID: in.Item.ID, Err: err}
	}

	var notes []string
	if in.Payment.Date.After(in.Item.ServiceStart) {
		notes, err = ApplyGracePeriod(schedule, in.Item, in.Payment.Date)
		if err != nil {
			return nil, &ItemError{ItemID: in.Item.ID, Err: err}
		}
	}

	if err := ApplyTermExtensions(schedule, in.Extensions); err != nil {
		return nil, &ItemError{ItemID: in.Item.ID, Err: err}
	}

	if err := ApplyRefunds(schedule, in.Invoice.Amount, in.Item, in.Refunds); err != nil {
		return nil, &ItemError{ItemID: in.Item.ID, Err: err}
	}

	return &Recognition{
		Schedule:   schedule,
		Months:     RollupMonths(schedule),
		GraceNotes: notes,
	}, nil
}
