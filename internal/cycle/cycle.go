// Package cycle maps a configurable billing day onto concrete calendar windows.
//
// A billing cycle is anchored on a day of the month rather than on the
// calendar month. Days that do not exist in a month (31 in April, 29-31 in a
// non-leap February) are clamped to the month's last day, so every window is
// non-empty and consecutive windows never overlap or leave gaps.
package cycle

import (
	"time"

	"famledger/internal/core"
)

// DefaultBillingDay is used when the configured day is missing or out of range.
const DefaultBillingDay = 1

// Window is the half-open interval [Start, End). End is always after Start.
type Window struct {
	Start time.Time `json:"cycleStart"`
	End   time.Time `json:"cycleEnd"`
}

// Contains reports whether t falls inside [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// ContainsDate is Contains for ledger dates. The zero date is never contained.
func (w Window) ContainsDate(d core.Date) bool {
	if d.IsZero() {
		return false
	}
	return w.Contains(d.Time)
}

// String returns the window as "[start, end)".
func (w Window) String() string {
	return "[" + w.Start.Format("2006-01-02") + ", " + w.End.Format("2006-01-02") + ")"
}

// Next returns the window that starts where this one ends.
func (w Window) Next(billingDay int) Window {
	return WindowFor(w.End, billingDay)
}

// Previous returns the window that ends where this one starts.
func (w Window) Previous(billingDay int) Window {
	return WindowFor(w.Start.Add(-time.Nanosecond), billingDay)
}

// NormalizeBillingDay returns day when it is in 1-31 and DefaultBillingDay otherwise.
func NormalizeBillingDay(day int) int {
	if day < 1 || day > 31 {
		return DefaultBillingDay
	}
	return day
}

// DaysInMonth returns the number of days of month in year.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampedDay returns billingDay capped to the length of the target month.
func ClampedDay(billingDay, year int, month time.Month) int {
	if last := DaysInMonth(year, month); billingDay > last {
		return last
	}
	return billingDay
}

// boundary returns midnight of the clamped billing day. Month overflow is
// normalised first so month 13 becomes January of the next year and month 0
// becomes December of the previous one.
func boundary(year int, month time.Month, billingDay int, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	y, m := first.Year(), first.Month()
	return time.Date(y, m, ClampedDay(billingDay, y, m), 0, 0, 0, 0, loc)
}

// WindowFor returns the billing window that contains ref.
//
// If ref is on or after this month's (clamped) billing day the window runs to
// the billing day of the next month; otherwise it started on the billing day
// of the previous month and ends at this month's. Dates are built in ref's
// location. An out-of-range billing day is treated as DefaultBillingDay.
func WindowFor(ref time.Time, billingDay int) Window {
	day := NormalizeBillingDay(billingDay)
	loc := ref.Location()
	year, month := ref.Year(), ref.Month()

	thisStart := boundary(year, month, day, loc)
	if !ref.Before(thisStart) {
		return Window{Start: thisStart, End: boundary(year, month+1, day, loc)}
	}
	return Window{Start: boundary(year, month-1, day, loc), End: thisStart}
}

// ForAccount returns the window containing ref for the account's configuration.
//
// Both monthly and custom cycles are anchored on BillingCycleStartDay. The
// custom end day is informational: windows always run up to the next start
// day so consecutive cycles stay contiguous.
func ForAccount(acct core.Account, ref time.Time) Window {
	switch acct.BillingCycleType {
	case core.CycleMonthly, core.CycleCustom:
		return WindowFor(ref, acct.BillingCycleStartDay)
	default:
		return WindowFor(ref, DefaultBillingDay)
	}
}

// CalendarMonth returns the window covering the whole calendar month. This is
// a separate periodization from billing cycles and ignores any billing day.
func CalendarMonth(year int, month time.Month, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}
