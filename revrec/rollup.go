package revrec

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONTHLY ROLLUP - Daily schedule aggregated for reporting
// =============================================================================

// MonthlyEntry aggregates one calendar month of a daily schedule. The six
// flow fields are sums over the month's days; EndingDeferredRevenue is the
// balance on the last day of the month present in the schedule.
type MonthlyEntry struct {
	CreditRevenue           decimal.Decimal
	DebitDeferredRevenue    decimal.Decimal
	CreditRefundPayable     decimal.Decimal
	DebitReserveRefund      decimal.Decimal
	DebitContraRevenue      decimal.Decimal
	DebitReserveGracePeriod decimal.Decimal
	CreditContraRevenue     decimal.Decimal
	EndingDeferredRevenue   decimal.Decimal
}

// MonthlyRollup maps calendar months to their aggregates. Derived wholesale
// from a daily schedule, never updated incrementally.
type MonthlyRollup map[YearMonth]MonthlyEntry

// Months returns the rollup's keys in chronological order.
func (r MonthlyRollup) Months() []YearMonth {
	months := make([]YearMonth, 0, len(r))
	for ym := range r {
		months = append(months, ym)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months
}

// RollupMonths aggregates a daily schedule into per-month totals. The ending
// deferred-revenue balance is sampled from each month's last day present in
// the schedule, so a partial final month reports the balance as of its last
// scheduled day.
func RollupMonths(s *Schedule) MonthlyRollup {
	rollup := make(MonthlyRollup)

	for _, date := range s.Dates() {
		entry, _ := s.EntryOn(date)
		ym := date.YearMonth()

		m := rollup[ym]
		m.CreditRevenue = m.CreditRevenue.Add(entry.CreditRevenue)
		m.DebitDeferredRevenue = m.DebitDeferredRevenue.Add(entry.DebitDeferredRevenue)
		m.CreditRefundPayable = m.CreditRefundPayable.Add(entry.CreditRefundPayable)
		m.DebitReserveRefund = m.DebitReserveRefund.Add(entry.DebitReserveRefund)
		m.DebitContraRevenue = m.DebitContraRevenue.Add(entry.DebitContraRevenue)
		m.DebitReserveGracePeriod = m.DebitReserveGracePeriod.Add(entry.DebitReserveGracePeriod)
		m.CreditContraRevenue = m.CreditContraRevenue.Add(entry.CreditContraRevenue)

		// Schedule dates are visited in order, so the last day seen for a
		// month wins. That is the month's true last day when the month is
		// fully covered, or the last scheduled day otherwise.
		m.EndingDeferredRevenue = entry.EndingDeferredRevenue

		rollup[ym] = m
	}

	return rollup
}
