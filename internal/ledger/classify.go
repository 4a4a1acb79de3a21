// Package ledger classifies and aggregates expense rows.
//
// Two periodizations coexist and are kept apart on purpose: billing-cycle
// windows (Classify, SummarizeChild) and plain calendar months
// (SumByCalendarMonth). Views pick one explicitly.
package ledger

import (
	"time"

	"github.com/samber/lo"

	"famledger/internal/core"
	"famledger/internal/cycle"
	"famledger/internal/recurring"
)

// Classification splits a ledger into the two sets the dashboards show.
// The sets are disjoint: one holds only non-recurring rows, the other only
// templates.
type Classification struct {
	Window          cycle.Window
	OneTimeInCycle  []core.Expense
	ActiveRecurring []core.Expense
}

// InCycle reports whether e counts toward spend for w: a non-recurring row
// dated inside the window with a settled status. Rows materialized from
// templates are ordinary rows here.
func InCycle(e core.Expense, w cycle.Window) bool {
	return !e.IsRecurring && w.ContainsDate(e.Date) && e.Status.Settled()
}

// Classify partitions expenses for window w, judging template expiry at now.
// Input order is preserved.
func Classify(expenses []core.Expense, w cycle.Window, now time.Time) Classification {
	return Classification{
		Window: w,
		OneTimeInCycle: lo.Filter(expenses, func(e core.Expense, _ int) bool {
			return InCycle(e, w)
		}),
		ActiveRecurring: lo.Filter(expenses, func(e core.Expense, _ int) bool {
			return recurring.IsActive(e, now)
		}),
	}
}

// ForChild keeps the rows belonging to childID. An empty id selects the
// general/shared rows.
func ForChild(expenses []core.Expense, childID string) []core.Expense {
	return lo.Filter(expenses, func(e core.Expense, _ int) bool {
		return e.ChildID == childID
	})
}
