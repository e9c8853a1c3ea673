package revrec

import (
	"time"
)

// =============================================================================
// DATE - Calendar day abstraction (the ledger is keyed by whole days)
// =============================================================================

// Date is a calendar date with no time-of-day component, normalized to
// midnight UTC. All schedule keys, event dates, and period boundaries are
// Dates; using time.Time directly invites time-zone and DST drift in day
// arithmetic.
type Date struct {
	t time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }
func (d Date) IsZero() bool      { return d.t.IsZero() }
func (d Date) Time() time.Time   { return d.t }

func (d Date) String() string { return d.t.Format("2006-01-02") }

// MaxDate returns the later of two dates.
func MaxDate(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

// =============================================================================
// YEAR-MONTH - Rollup key
// =============================================================================

// YearMonth identifies a calendar month, used as the monthly rollup key.
type YearMonth struct {
	Year  int
	Month time.Month
}

func (d Date) YearMonth() YearMonth { return YearMonth{Year: d.Year(), Month: d.Month()} }

func (ym YearMonth) String() string {
	return NewDate(ym.Year, ym.Month, 1).t.Format("2006-01")
}

// Before reports whether ym precedes other chronologically.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// =============================================================================
// DAY ARITHMETIC
// =============================================================================

// DaysElapsed returns the number of days between start and end inclusive of
// both endpoints: DaysElapsed(Jan 1, Jan 1) == 1.
// Returns ErrInvalidRange if end is before start.
func DaysElapsed(start, end Date) (int, error) {
	if end.Before(start) {
		return 0, &RangeError{Start: start, End: end}
	}
	return int(end.t.Sub(start.t).Hours()/24) + 1, nil
}

// DateRange returns every date from start to end inclusive, in order.
// An end before start yields an empty range.
func DateRange(start, end Date) []Date {
	var days []Date
	for current := start; current.BeforeOrEqual(end); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// =============================================================================
// MONTH BOUNDARIES
// =============================================================================

var lastDayByMonth = map[time.Month]int{
	time.January: 31, time.February: 28, time.March: 31, time.April: 30,
	time.May: 31, time.June: 30, time.July: 31, time.August: 31,
	time.September: 30, time.October: 31, time.November: 30, time.December: 31,
}

// IsLeapYear implements the Gregorian rule: divisible by 4, except centuries
// unless divisible by 400.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// LastDayOfMonth returns the number of the last day of the given month.
func LastDayOfMonth(year int, month time.Month) int {
	if month == time.February && IsLeapYear(year) {
		return 29
	}
	return lastDayByMonth[month]
}

// IsLastDayOfMonth reports whether the next day falls in a different month.
func IsLastDayOfMonth(d Date) bool {
	return d.AddDays(1).Month() != d.Month()
}

// EndOfMonth returns the last date of the month containing d.
func EndOfMonth(d Date) Date {
	return NewDate(d.Year(), d.Month(), LastDayOfMonth(d.Year(), d.Month()))
}

// =============================================================================
// RENEWAL DATES
// =============================================================================

// NextRenewalDate computes the anniversary-based renewal date following
// prevRenewal. The renewal day is anchored to the initial bill date's day of
// month, clamped to the end of shorter months:
//
//	Mar 5 -> Apr 5; Mar 30 -> Apr 30; Mar 31 -> Apr 30
//
// A subscription first billed on a month's last day always renews on the
// target month's last day.
func NextRenewalDate(initialBill, prevRenewal Date, periodMonths int) Date {
	sumMonths := int(prevRenewal.Month()) + periodMonths
	year := prevRenewal.Year() + (sumMonths-1)/12
	month := time.Month(sumMonths % 12)
	if month == 0 {
		month = time.December
	}

	lastDay := LastDayOfMonth(year, month)
	day := initialBill.Day()
	if IsLastDayOfMonth(initialBill) || lastDay < day {
		day = lastDay
	}
	return NewDate(year, month, day)
}
