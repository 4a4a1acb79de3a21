// Package recurring governs recurring-expense templates and their
// materialized occurrences.
//
// A template is Active from creation, becomes Expired once its end date has
// passed (derived, never stored) and Deleted on explicit removal. Deleting a
// template only clears the back-reference on the rows generated from it:
// ledger history is immutable.
package recurring

import (
	"context"
	"errors"
	"strings"
	"time"

	"famledger/internal/core"
)

type State int

const (
	Active State = iota
	Expired
	Deleted
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Expired:
		return "expired"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

var (
	ErrNotTemplate    = errors.New("expense is not a recurring template")
	ErrTemplateLocked = errors.New("deleted templates cannot be edited")
)

// MaterializationService generates the ledger rows that recurring templates
// owe as of a given instant. The engine never calls it; it only classifies
// its output like any manually entered expense.
type MaterializationService interface {
	GenerateDueOccurrences(ctx context.Context, asOf time.Time) ([]core.Expense, error)
}

// StateOf derives the lifecycle state of tmpl at now. A template without an
// end date never expires; one flagged with an end date but missing the date
// itself is treated as open-ended.
func StateOf(tmpl core.Expense, now time.Time) State {
	if tmpl.IsDeleted() {
		return Deleted
	}
	if tmpl.HasEndDate && !tmpl.EndDate.IsZero() && tmpl.EndDate.Before(now) {
		return Expired
	}
	return Active
}

// IsActive reports whether tmpl is a recurring template in the Active state.
func IsActive(tmpl core.Expense, now time.Time) bool {
	return tmpl.IsRecurring && StateOf(tmpl, now) == Active
}

// Unlink returns a copy of rows where every occurrence of templateID has its
// back-reference cleared. No row is dropped and other fields are untouched.
func Unlink(templateID string, rows []core.Expense) []core.Expense {
	out := make([]core.Expense, len(rows))
	copy(out, rows)
	if templateID == "" {
		return out
	}
	for i := range out {
		if out[i].TemplateID == templateID {
			out[i].TemplateID = ""
		}
	}
	return out
}

// TemplateEdit holds the template fields a user may change. Nil fields are
// left as they are.
type TemplateEdit struct {
	Description *string
	Amount      *core.Money
	Frequency   *core.Frequency
	ChildID     *string
	HasEndDate  *bool
	EndDate     *core.Date
}

// ApplyEdit returns tmpl with edit applied. Only future materializations see
// the change: rows already generated are separate snapshots and are not
// referenced here at all.
func ApplyEdit(tmpl core.Expense, edit TemplateEdit) (core.Expense, error) {
	if !tmpl.IsRecurring {
		return tmpl, ErrNotTemplate
	}
	if tmpl.IsDeleted() {
		return tmpl, ErrTemplateLocked
	}
	out := tmpl
	if edit.Description != nil {
		out.Description = strings.TrimSpace(*edit.Description)
	}
	if edit.Amount != nil {
		out.Amount = *edit.Amount
	}
	if edit.Frequency != nil {
		out.Frequency = *edit.Frequency
	}
	if edit.ChildID != nil {
		out.ChildID = *edit.ChildID
	}
	if edit.HasEndDate != nil {
		out.HasEndDate = *edit.HasEndDate
		if !out.HasEndDate {
			out.EndDate = core.Date{}
		}
	}
	if edit.EndDate != nil {
		out.EndDate = *edit.EndDate
	}
	if err := out.Validate(); err != nil {
		return tmpl, err
	}
	return out, nil
}
