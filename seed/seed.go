/*
Package seed generates demo billing data for development and demonstrations.

PURPOSE:
  Populates the store with invoices that exercise the interesting paths of
  the recognition engine: on-time and late payments, partial and
  cancellation refunds, and term extensions. Deterministic for a given
  seed value so a demo database can be reproduced.

GENERATED SHAPE:
  Each invoice carries one subscription item. The service window starts on
  the invoice date and runs to the day before the next renewal date for
  the item's billing period. Payments land 0 to 15 days after the invoice
  date; the late ones trigger grace period accounting downstream.

PLANS:
  Unlimited: 20 / 220 / 400 for Monthly / Yearly / Biyearly
  Standard:  10 / 110 / 200

NOTE:
  Load resets the database first. Only use in development/demo
  environments.

SEE ALSO:
  - api: POST /api/seed drives this package
  - revrec: the engine the generated records feed
*/
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clearledger/revrec-engine/revrec"
	"github.com/clearledger/revrec-engine/store/sqlite"
)

// Config controls generation.
type Config struct {
	Invoices int   // number of invoices to generate
	Year     int   // calendar year invoices are dated in
	Seed     int64 // RNG seed; same seed, same data
}

// DefaultConfig generates a year of 2012 demo invoices.
func DefaultConfig() Config {
	return Config{Invoices: 50, Year: 2012, Seed: 1}
}

// Summary reports what Load created.
type Summary struct {
	Invoices   int `json:"invoices"`
	Payments   int `json:"payments"`
	Refunds    int `json:"refunds"`
	Extensions int `json:"extensions"`
}

var planAmounts = map[string]map[revrec.BillingPeriod]int64{
	"Unlimited": {revrec.Monthly: 20, revrec.Yearly: 220, revrec.Biyearly: 400},
	"Standard":  {revrec.Monthly: 10, revrec.Yearly: 110, revrec.Biyearly: 200},
}

var plans = []string{"Unlimited", "Standard"}

// Mostly monthly, as real subscription books skew that way.
var periods = []revrec.BillingPeriod{
	revrec.Monthly, revrec.Monthly, revrec.Monthly, revrec.Monthly,
	revrec.Yearly, revrec.Yearly,
	revrec.Biyearly,
}

// Load resets the store and fills it with generated invoices.
func Load(ctx context.Context, store *sqlite.Store, cfg Config) (Summary, error) {
	if cfg.Invoices <= 0 {
		cfg.Invoices = DefaultConfig().Invoices
	}
	if cfg.Year == 0 {
		cfg.Year = DefaultConfig().Year
	}

	if err := store.Reset(ctx); err != nil {
		return Summary{}, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	var summary Summary

	for i := 1; i <= cfg.Invoices; i++ {
		if err := genInvoice(ctx, store, rng, cfg.Year, i, &summary); err != nil {
			return Summary{}, fmt.Errorf("seed invoice %d: %w", i, err)
		}
	}

	return summary, nil
}

func genInvoice(ctx context.Context, store *sqlite.Store, rng *rand.Rand, year, n int, summary *Summary) error {
	invoiceID := fmt.Sprintf("inv-%04d", n)
	accountID := fmt.Sprintf("acct-%04d", n)

	// Day capped at 28 so every month works.
	invoiceDate := revrec.NewDate(year, time.Month(1+rng.Intn(12)), 1+rng.Intn(28))

	plan := plans[rng.Intn(len(plans))]
	period := periods[rng.Intn(len(periods))]
	amount := decimal.NewFromInt(planAmounts[plan][period])

	serviceStart := invoiceDate
	serviceEnd := revrec.NextRenewalDate(invoiceDate, invoiceDate, period.Months()).AddDays(-1)

	inv := revrec.Invoice{
		ID:        invoiceID,
		AccountID: accountID,
		Date:      invoiceDate,
		Amount:    amount,
	}
	if err := store.SaveInvoice(ctx, inv); err != nil {
		return err
	}
	summary.Invoices++

	item := revrec.InvoiceItem{
		ID:            fmt.Sprintf("item-%04d", n),
		InvoiceID:     invoiceID,
		AccountID:     accountID,
		ChargeName:    "Subscription Fee",
		Plan:          plan,
		Amount:        amount,
		ServiceStart:  serviceStart,
		ServiceEnd:    serviceEnd,
		BillingPeriod: period,
	}
	if err := store.SaveInvoiceItem(ctx, item); err != nil {
		return err
	}

	// Roughly one invoice in ten stays unpaid.
	if rng.Intn(10) == 0 {
		return nil
	}

	daysLate := 0
	if rng.Intn(2) == 0 {
		daysLate = 1 + rng.Intn(15)
	}
	paymentDate := invoiceDate.AddDays(daysLate)
	payment := revrec.Payment{
		ID:        fmt.Sprintf("pay-%04d", n),
		InvoiceID: invoiceID,
		Date:      paymentDate,
		Amount:    amount,
	}
	if err := store.SavePayment(ctx, payment); err != nil {
		return err
	}
	summary.Payments++

	// Refunds hit about a fifth of paid invoices. The date must fall
	// strictly after recognition starts and within the service window.
	if rng.Intn(5) == 0 {
		maxOffset, err := revrec.DaysElapsed(paymentDate, serviceEnd)
		if err == nil && maxOffset > 1 {
			refundDate := paymentDate.AddDays(1 + rng.Intn(maxOffset-1))
			pct := decimal.NewFromInt(int64(10 + rng.Intn(91))).Div(decimal.NewFromInt(100))
			refund := revrec.Refund{
				ID:           fmt.Sprintf("ref-%04d", n),
				InvoiceID:    invoiceID,
				Date:         refundDate,
				Amount:       amount.Mul(pct).Round(2),
				Cancellation: rng.Intn(2) == 0,
			}
			if err := store.SaveRefund(ctx, refund); err != nil {
				return err
			}
			summary.Refunds++
		}
	}

	// Term extensions hit about one paid invoice in ten.
	if rng.Intn(10) == 0 {
		grantDate := serviceStart.AddDays(1 + rng.Intn(28))
		if grantDate.BeforeOrEqual(serviceEnd) {
			ext := revrec.TermExtension{
				ID:         fmt.Sprintf("ext-%04d", n),
				InvoiceID:  invoiceID,
				GrantDate:  grantDate,
				ServiceEnd: serviceEnd.AddDays(30),
			}
			if err := store.SaveTermExtension(ctx, ext); err != nil {
				return err
			}
			summary.Extensions++
		}
	}

	return nil
}
