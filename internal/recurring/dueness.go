// This file implements the Strategy Pattern for recurring expense dueness checking.
// Each frequency has its own checker that decides whether a template owes a
// new occurrence given its last materialization.

package recurring

import (
	"fmt"
	"time"

	"famledger/internal/core"
)

// DuenessChecker is the strategy interface for checking if a recurring template is due.
type DuenessChecker interface {
	// IsDue returns true if a new occurrence should be generated based on
	// the last run and the current time.
	IsDue(lastRun, now time.Time, startDate core.Date) bool
}

// WeeklyChecker implements DuenessChecker for weekly templates.
type WeeklyChecker struct{}

// IsDue returns true if 7 or more days have passed since last run.
func (WeeklyChecker) IsDue(lastRun, now time.Time, _ core.Date) bool {
	if lastRun.IsZero() {
		return true
	}
	return now.Sub(lastRun) >= 7*24*time.Hour
}

// MonthlyChecker implements DuenessChecker for monthly templates.
type MonthlyChecker struct{}

// IsDue returns true if we're in a new month and have reached the target day.
func (MonthlyChecker) IsDue(lastRun, now time.Time, startDate core.Date) bool {
	if lastRun.IsZero() {
		return true
	}
	if lastRun.Year() == now.Year() && lastRun.Month() == now.Month() {
		return false
	}
	return now.Day() >= clampDay(startDate.Day(), now.Year(), now.Month())
}

// YearlyChecker implements DuenessChecker for yearly templates.
type YearlyChecker struct{}

// IsDue returns true if we're in a new year and have reached the target month and day.
func (YearlyChecker) IsDue(lastRun, now time.Time, startDate core.Date) bool {
	if lastRun.IsZero() {
		return true
	}
	if lastRun.Year() == now.Year() {
		return false
	}
	switch {
	case now.Month() < startDate.Month():
		return false
	case now.Month() == startDate.Month():
		return now.Day() >= clampDay(startDate.Day(), now.Year(), now.Month())
	default:
		return true
	}
}

func clampDay(day, year int, month time.Month) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

// CheckerFor returns the dueness checker for a frequency.
func CheckerFor(freq core.Frequency) (DuenessChecker, error) {
	switch freq {
	case core.Weekly:
		return WeeklyChecker{}, nil
	case core.Monthly:
		return MonthlyChecker{}, nil
	case core.Yearly:
		return YearlyChecker{}, nil
	default:
		return nil, fmt.Errorf("unknown frequency: %s", freq)
	}
}

// IsDue reports whether tmpl owes an occurrence at now. Templates that are not
// Active or have not started yet are never due.
func IsDue(tmpl core.Expense, lastRun, now time.Time) (bool, error) {
	if !IsActive(tmpl, now) {
		return false, nil
	}
	if !tmpl.Date.IsZero() && now.Before(tmpl.Date.Time) {
		return false, nil
	}
	checker, err := CheckerFor(tmpl.Frequency)
	if err != nil {
		return false, err
	}
	return checker.IsDue(lastRun, now, tmpl.Date), nil
}

// Occurrence builds the ledger row a template generates for at. The row is a
// snapshot: later template edits do not reach it.
func Occurrence(tmpl core.Expense, id string, at time.Time) core.Expense {
	return core.Expense{
		ID:           id,
		AccountID:    tmpl.AccountID,
		Description:  tmpl.Description,
		Amount:       tmpl.Amount,
		Date:         core.NewDate(at.Year(), at.Month(), at.Day()),
		Status:       core.StatusPending,
		ChildID:      tmpl.ChildID,
		SplitEqually: tmpl.SplitEqually,
		TemplateID:   tmpl.ID,
	}
}
