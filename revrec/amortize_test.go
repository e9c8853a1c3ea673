package revrec_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearledger/revrec-engine/revrec"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func jan(day int) revrec.Date { return revrec.NewDate(2012, time.January, day) }
func feb(day int) revrec.Date { return revrec.NewDate(2012, time.February, day) }

// januaryItem is the canonical fixture: a $20.00 monthly fee covering all of
// January 2012 (31 days).
func januaryItem() revrec.InvoiceItem {
	return revrec.InvoiceItem{
		ID:            "item-1",
		InvoiceID:     "inv-1",
		Amount:        dec("20.00"),
		ServiceStart:  jan(1),
		ServiceEnd:    jan(31),
		BillingPeriod: revrec.Monthly,
	}
}

func entryOn(t *testing.T, s *revrec.Schedule, d revrec.Date) revrec.Entry {
	t.Helper()
	e, err := s.EntryOn(d)
	require.NoError(t, err)
	return e
}

func assertAmount(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.InDelta(t, dec(expected).InexactFloat64(), actual.InexactFloat64(), 0.01, msgAndArgs...)
}

// =============================================================================
// BASE AMORTIZATION
// =============================================================================

func TestAmortizeServiceFee_PaidOnTime(t *testing.T) {
	// GIVEN: $20.00 for Jan 1 - Jan 31, paid on Jan 1
	// WHEN: Building the base schedule
	// THEN: Daily amortization is 20/31, deferred hits zero on the last day

	s, err := revrec.AmortizeServiceFee(januaryItem(), jan(1))
	require.NoError(t, err)

	require.Equal(t, 31, s.Len())

	day1 := entryOn(t, s, jan(1))
	assertAmount(t, "0.6452", day1.CreditRevenue)
	assertAmount(t, "0.6452", day1.DebitDeferredRevenue)
	assertAmount(t, "19.3548", day1.EndingDeferredRevenue)

	last := entryOn(t, s, jan(31))
	assertAmount(t, "0.00", last.EndingDeferredRevenue)
	assertAmount(t, "20.00", last.CumulativeRevenue)
}

func TestAmortizeServiceFee_RevenueSumsToPrincipal(t *testing.T) {
	s, err := revrec.AmortizeServiceFee(januaryItem(), jan(1))
	require.NoError(t, err)

	total := decimal.Zero
	for _, d := range s.Dates() {
		total = total.Add(entryOn(t, s, d).CreditRevenue)
	}
	assertAmount(t, "20.00", total)
}

func TestAmortizeServiceFee_DeferredRevenueMonotonicDecrease(t *testing.T) {
	s, err := revrec.AmortizeServiceFee(januaryItem(), jan(1))
	require.NoError(t, err)

	prev := entryOn(t, s, jan(1)).EndingDeferredRevenue
	for _, d := range s.Dates()[1:] {
		ending := entryOn(t, s, d).EndingDeferredRevenue
		assert.True(t, ending.LessThanOrEqual(prev), "deferred revenue rose on %s", d)
		prev = ending
	}
}

func TestAmortizeServiceFee_LatePayment(t *testing.T) {
	// GIVEN: Same item, paid 9 days late on Jan 10
	// WHEN: Building the base schedule
	// THEN: Jan 1-9 carry zero entries; Jan 10 starts amortizing over the
	//       22 remaining days

	s, err := revrec.AmortizeServiceFee(januaryItem(), jan(10))
	require.NoError(t, err)

	for day := 1; day <= 9; day++ {
		e := entryOn(t, s, jan(day))
		assert.True(t, e.CreditRevenue.IsZero(), "revenue on jan %d", day)
		assert.True(t, e.EndingDeferredRevenue.IsZero(), "deferred on jan %d", day)
	}

	day10 := entryOn(t, s, jan(10))
	assertAmount(t, "0.9091", day10.CreditRevenue) // 20 / 22
	assertAmount(t, "19.0909", day10.EndingDeferredRevenue)

	last := entryOn(t, s, jan(31))
	assertAmount(t, "0.00", last.EndingDeferredRevenue)
	assertAmount(t, "20.00", last.CumulativeRevenue)
}

func TestAmortizeServiceFee_PaidBeforeServiceStart(t *testing.T) {
	// Early payment: recognition starts on the service start, over the full
	// service term.
	s, err := revrec.AmortizeServiceFee(januaryItem(), revrec.NewDate(2011, time.December, 28))
	require.NoError(t, err)

	day1 := entryOn(t, s, jan(1))
	assertAmount(t, "0.6452", day1.CreditRevenue)

	last := entryOn(t, s, jan(31))
	assertAmount(t, "0.00", last.EndingDeferredRevenue)
	assertAmount(t, "20.00", last.CumulativeRevenue)
}

func TestAmortizeServiceFee_PaymentAfterServiceEnd_AllZero(t *testing.T) {
	// Payment past the service end never triggers recognition; the schedule
	// exists but stays all-zero.
	s, err := revrec.AmortizeServiceFee(januaryItem(), feb(15))
	require.NoError(t, err)

	for _, d := range s.Dates() {
		e := entryOn(t, s, d)
		assert.True(t, e.CreditRevenue.IsZero())
		assert.True(t, e.EndingDeferredRevenue.IsZero())
		assert.True(t, e.CumulativeRevenue.IsZero())
	}
}

func TestAmortizeServiceFee_InvertedServiceWindow_Rejected(t *testing.T) {
	item := januaryItem()
	item.ServiceStart = jan(31)
	item.ServiceEnd = jan(1)

	_, err := revrec.AmortizeServiceFee(item, jan(1))
	assert.ErrorIs(t, err, revrec.ErrInvalidRange)
}

// =============================================================================
// GENERIC RE-AMORTIZATION
// =============================================================================

func TestAmortizeRemaining_SpreadsEvenlyAndEndsAtZero(t *testing.T) {
	s, err := revrec.AmortizeServiceFee(januaryItem(), jan(1))
	require.NoError(t, err)

	require.NoError(t, revrec.AmortizeRemaining(s, dec("10.00"), jan(22), jan(31)))

	total := decimal.Zero
	for _, d := range revrec.DateRange(jan(22), jan(31)) {
		e := entryOn(t, s, d)
		assertAmount(t, "1.00", e.CreditRevenue)
		assertAmount(t, "1.00", e.DebitDeferredRevenue)
		total = total.Add(e.CreditRevenue)
	}
	assertAmount(t, "10.00", total)
	assertAmount(t, "0.00", entryOn(t, s, jan(31)).EndingDeferredRevenue)
}

func TestAmortizeRemaining_InvertedRange_Rejected(t *testing.T) {
	s, err := revrec.AmortizeServiceFee(januaryItem(), jan(1))
	require.NoError(t, err)

	err = revrec.AmortizeRemaining(s, dec("5.00"), jan(20), jan(10))
	assert.ErrorIs(t, err, revrec.ErrInvalidRange)
}

func TestAmortizeRemaining_OutsideSchedule_Rejected(t *testing.T) {
	s, err := revrec.AmortizeServiceFee(januaryItem(), jan(1))
	require.NoError(t, err)

	err = revrec.AmortizeRemaining(s, dec("5.00"), jan(20), feb(10))
	assert.ErrorIs(t, err, revrec.ErrDateOutsideSchedule)
}
