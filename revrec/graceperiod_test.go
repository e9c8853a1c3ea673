package revrec_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearledger/revrec-engine/revrec"
)

// The canonical late-payment fixture: $20.00 monthly fee for January 2012,
// paid 9 days late on Jan 10. The previous period is approximated at 30 days
// (Dec 2 - Dec 31, 2011), so the previous daily rate is 20/30.

func lateJanuarySchedule(t *testing.T) (*revrec.Schedule, []string) {
	t.Helper()
	item := januaryItem()

	s, err := revrec.AmortizeServiceFee(item, jan(10))
	require.NoError(t, err)

	notes, err := revrec.ApplyGracePeriod(s, item, jan(10))
	require.NoError(t, err)
	return s, notes
}

func TestApplyGracePeriod_FirstLateDayReserve(t *testing.T) {
	// Day 1: the previous term stretches from 30 to 31 days, so the reserve
	// releases 30 x (20/30 - 20/31) = 0.6452.
	s, _ := lateJanuarySchedule(t)

	day1 := entryOn(t, s, jan(1))
	assertAmount(t, "0.6452", day1.DebitReserveGracePeriod)
	assertAmount(t, "0.6452", day1.CreditContraRevenue)
}

func TestApplyGracePeriod_DrawdownConvergesToOverReserve(t *testing.T) {
	// After all 9 late days the cumulative drawdown equals the full
	// over-reserved amount: 30 x (20/30 - 20/39) = 4.6154.
	s, _ := lateJanuarySchedule(t)

	total := decimal.Zero
	for day := 1; day <= 9; day++ {
		e := entryOn(t, s, jan(day))
		assert.Equal(t, e.DebitReserveGracePeriod, e.CreditContraRevenue,
			"contra-revenue must mirror the reserve debit on jan %d", day)
		total = total.Add(e.DebitReserveGracePeriod)
	}
	assertAmount(t, "4.6154", total)
}

func TestApplyGracePeriod_EachIncrementPositiveAndShrinking(t *testing.T) {
	// The blended rate falls more slowly each day, so every increment is
	// positive and smaller than the one before.
	s, _ := lateJanuarySchedule(t)

	prev := entryOn(t, s, jan(1)).DebitReserveGracePeriod
	assert.True(t, prev.IsPositive())
	for day := 2; day <= 9; day++ {
		cur := entryOn(t, s, jan(day)).DebitReserveGracePeriod
		assert.True(t, cur.IsPositive(), "increment on jan %d", day)
		assert.True(t, cur.LessThan(prev), "increment grew on jan %d", day)
		prev = cur
	}
}

func TestApplyGracePeriod_NoPostingsOnOrAfterPaymentDate(t *testing.T) {
	s, _ := lateJanuarySchedule(t)

	for day := 10; day <= 31; day++ {
		e := entryOn(t, s, jan(day))
		assert.True(t, e.DebitReserveGracePeriod.IsZero(), "jan %d", day)
		assert.True(t, e.CreditContraRevenue.IsZero(), "jan %d", day)
	}
}

func TestApplyGracePeriod_AuditTrail(t *testing.T) {
	// Header (1), divider (1), two context lines, one line per late day (9),
	// closing divider (1).
	_, notes := lateJanuarySchedule(t)

	require.Len(t, notes, 14)
	assert.Equal(t, "JOURNAL ENTRIES FOR GRACE PERIOD", notes[0])
	assert.Contains(t, notes[2], "payment date: 2012-01-10")
	assert.Contains(t, notes[2], "previous term: 2011-12-02 -> 2011-12-31")
	assert.Contains(t, notes[4], "2012-01-01")
	assert.Contains(t, notes[4], "PrevTerm: 30->31")
}

func TestApplyGracePeriod_YearlyPeriodUsesYearlyDayTable(t *testing.T) {
	// A yearly item approximates the previous period at 365 days.
	item := revrec.InvoiceItem{
		ID:            "item-y",
		Amount:        dec("220.00"),
		ServiceStart:  jan(1),
		ServiceEnd:    revrec.NewDate(2012, 12, 31),
		BillingPeriod: revrec.Yearly,
	}

	s, err := revrec.AmortizeServiceFee(item, jan(4))
	require.NoError(t, err)

	notes, err := revrec.ApplyGracePeriod(s, item, jan(4))
	require.NoError(t, err)

	assert.Contains(t, notes[4], "PrevTerm: 365->366")
	day1 := entryOn(t, s, jan(1))
	assert.True(t, day1.DebitReserveGracePeriod.IsPositive())
}
