package revrec_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearledger/revrec-engine/revrec"
)

func TestRollupMonths_Additivity(t *testing.T) {
	// Summing a rollup's flow fields across months equals summing the daily
	// schedule's fields across days.
	item := revrec.InvoiceItem{
		ID:            "item-q",
		Amount:        dec("91.00"),
		ServiceStart:  jan(1),
		ServiceEnd:    revrec.NewDate(2012, time.March, 31),
		BillingPeriod: revrec.Monthly,
	}
	s, err := revrec.AmortizeServiceFee(item, jan(10))
	require.NoError(t, err)
	_, err = revrec.ApplyGracePeriod(s, item, jan(10))
	require.NoError(t, err)

	rollup := revrec.RollupMonths(s)
	require.Len(t, rollup, 3)

	var monthlyRevenue, monthlyReserve decimal.Decimal
	for _, m := range rollup {
		monthlyRevenue = monthlyRevenue.Add(m.CreditRevenue)
		monthlyReserve = monthlyReserve.Add(m.DebitReserveGracePeriod)
	}

	var dailyRevenue, dailyReserve decimal.Decimal
	for _, d := range s.Dates() {
		e := entryOn(t, s, d)
		dailyRevenue = dailyRevenue.Add(e.CreditRevenue)
		dailyReserve = dailyReserve.Add(e.DebitReserveGracePeriod)
	}

	assert.True(t, monthlyRevenue.Sub(dailyRevenue).Abs().LessThan(dec("0.0001")))
	assert.True(t, monthlyReserve.Sub(dailyReserve).Abs().LessThan(dec("0.0001")))
	assertAmount(t, "91.00", monthlyRevenue)
}

func TestRollupMonths_EndingBalanceFromLastDayOfMonth(t *testing.T) {
	s := dollarADaySchedule(t)
	rollup := revrec.RollupMonths(s)

	jan2012 := jan(1).YearMonth()
	require.Contains(t, rollup, jan2012)
	assertAmount(t, "0.00", rollup[jan2012].EndingDeferredRevenue)
	assertAmount(t, "31.00", rollup[jan2012].CreditRevenue)
}

func TestRollupMonths_PartialMonthUsesLastScheduledDay(t *testing.T) {
	// Schedule ends mid-February; February's ending balance is sampled from
	// Feb 15, the last date present.
	item := revrec.InvoiceItem{
		ID:            "item-p",
		Amount:        dec("46.00"),
		ServiceStart:  jan(1),
		ServiceEnd:    feb(15), // 46 days at $1/day
		BillingPeriod: revrec.Monthly,
	}
	s, err := revrec.AmortizeServiceFee(item, jan(1))
	require.NoError(t, err)

	rollup := revrec.RollupMonths(s)
	require.Len(t, rollup, 2)

	feb2012 := feb(1).YearMonth()
	lastDay := entryOn(t, s, feb(15))
	assert.True(t, rollup[feb2012].EndingDeferredRevenue.Equal(lastDay.EndingDeferredRevenue))
	assertAmount(t, "0.00", rollup[feb2012].EndingDeferredRevenue)

	jan2012 := jan(1).YearMonth()
	assertAmount(t, "15.00", rollup[jan2012].EndingDeferredRevenue)
}

func TestMonthlyRollup_MonthsSortedChronologically(t *testing.T) {
	item := revrec.InvoiceItem{
		ID:            "item-y",
		Amount:        dec("220.00"),
		ServiceStart:  revrec.NewDate(2011, time.November, 15),
		ServiceEnd:    revrec.NewDate(2012, time.February, 14),
		BillingPeriod: revrec.Monthly,
	}
	s, err := revrec.AmortizeServiceFee(item, revrec.NewDate(2011, time.November, 15))
	require.NoError(t, err)

	months := revrec.RollupMonths(s).Months()
	require.Len(t, months, 4)
	assert.Equal(t, "2011-11", months[0].String())
	assert.Equal(t, "2012-02", months[3].String())
}
