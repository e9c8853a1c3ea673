/*
Package revrec computes day-by-day revenue-recognition schedules for
subscription invoices under accrual accounting.

PURPOSE:
  Given an invoice item, its payment, refunds, and term extensions, the
  engine builds a daily ledger of debits and credits (deferred revenue,
  recognized revenue, contra-revenue, refund reserves) and rolls it up
  into monthly accounting entries.

KEY CONCEPTS IN THIS FILE (types.go):
  - Invoice / InvoiceItem: what was billed, for which service window
  - Payment / Refund / TermExtension: cash events that reshape the schedule
  - BillingPeriod: subscription cadence, with the day-count table used by
    the grace-period calculation

DESIGN PRINCIPLES:
  1. Purity: the engine never performs I/O; inputs are plain records
  2. Precision: all money is decimal.Decimal, never binary float
  3. Isolation: one schedule per invoice item, never shared across items

PIPELINE:
  AmortizeServiceFee -> ApplyGracePeriod -> ApplyTermExtensions ->
  ApplyRefunds -> RollupMonths
  Stage order matters: later stages read ending balances written by
  earlier ones. Recognize() runs the stages in the required order.

SEE ALSO:
  - schedule.go: the per-day ledger container
  - recognize.go: the per-item orchestration entry point
*/
package revrec

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// BILLING PERIOD
// =============================================================================

type BillingPeriod string

const (
	Monthly  BillingPeriod = "Monthly"
	Yearly   BillingPeriod = "Yearly"
	Biyearly BillingPeriod = "Biyearly"
)

// Days returns the calendar-approximate length of one billing period.
// These are deliberately flat (30/365/730), not exact month lengths: the
// grace-period reserve formula estimates the previous period's term, and
// the approximation matches how that reserve was originally accrued.
func (p BillingPeriod) Days() int {
	switch p {
	case Yearly:
		return 365
	case Biyearly:
		return 730
	default:
		return 30
	}
}

// Months returns the billing period length in months, used for
// anniversary-based renewal date computation.
func (p BillingPeriod) Months() int {
	switch p {
	case Yearly:
		return 12
	case Biyearly:
		return 24
	default:
		return 1
	}
}

// =============================================================================
// INPUT RECORDS - Read-only to the engine
// =============================================================================

// Invoice is the billing document a payment settles. The engine only needs
// the total amount (for refund proration) and identifiers for reporting.
type Invoice struct {
	ID        string
	AccountID string
	Date      Date
	Amount    decimal.Decimal
}

// InvoiceItem is one line of an invoice: a fee covering a service window.
// Recognition runs item by item; each item owns its own schedule.
type InvoiceItem struct {
	ID            string
	InvoiceID     string
	AccountID     string
	ChargeName    string
	Plan          string
	Amount        decimal.Decimal
	ServiceStart  Date
	ServiceEnd    Date
	BillingPeriod BillingPeriod
}

// Payment settles an invoice. Recognition cannot begin before the payment
// date: deferred revenue does not exist until cash is received.
type Payment struct {
	ID        string
	InvoiceID string
	Date      Date
	Amount    decimal.Decimal
}

// Refund returns money to the customer. Cancellation refunds terminate the
// service; non-cancellation refunds (service issues) leave it running.
type Refund struct {
	ID           string
	InvoiceID    string
	Date         Date
	Amount       decimal.Decimal
	Cancellation bool
}

// TermExtension lengthens an item's service window. Remaining deferred
// revenue is re-amortized over the extended window from the grant date.
type TermExtension struct {
	ID         string
	InvoiceID  string
	GrantDate  Date
	ServiceEnd Date
}

// Paid reports whether the payment fully settles the invoice.
func (inv Invoice) Paid(p *Payment) bool {
	return p != nil && p.Amount.Equal(inv.Amount)
}
