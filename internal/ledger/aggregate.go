package ledger

import (
	"time"

	"github.com/samber/lo"

	"famledger/internal/core"
	"famledger/internal/cycle"
)

// StatusTotals sums amounts per status. Every field is zero for empty input.
type StatusTotals struct {
	Pending  core.Money `json:"pending"`
	Approved core.Money `json:"approved"`
	Rejected core.Money `json:"rejected"`
	Paid     core.Money `json:"paid"`
}

// Total is the sum over all four statuses.
func (t StatusTotals) Total() core.Money {
	return t.Pending.Add(t.Approved).Add(t.Rejected).Add(t.Paid)
}

// Settled is approved plus paid.
func (t StatusTotals) Settled() core.Money {
	return t.Approved.Add(t.Paid)
}

// Of returns the total for a single status.
func (t StatusTotals) Of(s core.ExpenseStatus) core.Money {
	switch s {
	case core.StatusPending:
		return t.Pending
	case core.StatusApproved:
		return t.Approved
	case core.StatusRejected:
		return t.Rejected
	case core.StatusPaid:
		return t.Paid
	default:
		return core.Zero
	}
}

// Sum adds up every amount. Negative amounts are carried through unchanged.
func Sum(expenses []core.Expense) core.Money {
	return lo.Reduce(expenses, func(acc core.Money, e core.Expense, _ int) core.Money {
		return acc.Add(e.Amount)
	}, core.Zero)
}

// SumByStatus totals amounts per status. Rows with an unknown status are
// left out; validated input has none.
func SumByStatus(expenses []core.Expense) StatusTotals {
	var t StatusTotals
	for _, e := range expenses {
		switch e.Status {
		case core.StatusPending:
			t.Pending = t.Pending.Add(e.Amount)
		case core.StatusApproved:
			t.Approved = t.Approved.Add(e.Amount)
		case core.StatusRejected:
			t.Rejected = t.Rejected.Add(e.Amount)
		case core.StatusPaid:
			t.Paid = t.Paid.Add(e.Amount)
		}
	}
	return t
}

// InCalendarMonth keeps rows dated in the given calendar month, whatever the
// account's billing day. Rows without a date never match.
func InCalendarMonth(expenses []core.Expense, year int, month time.Month) []core.Expense {
	return lo.Filter(expenses, func(e core.Expense, _ int) bool {
		if e.Date.IsZero() {
			return false
		}
		return e.Date.Year() == year && e.Date.Month() == month
	})
}

// SumByCalendarMonth is SumByStatus over the rows of one calendar month.
// It backs the month-picker views and is not a billing-cycle total.
func SumByCalendarMonth(expenses []core.Expense, year int, month time.Month) StatusTotals {
	return SumByStatus(InCalendarMonth(expenses, year, month))
}

// SumByCycle is SumByStatus over the non-recurring rows dated inside w.
func SumByCycle(expenses []core.Expense, w cycle.Window) StatusTotals {
	return SumByStatus(lo.Filter(expenses, func(e core.Expense, _ int) bool {
		return !e.IsRecurring && w.ContainsDate(e.Date)
	}))
}
