// Package sheets exports billing-cycle reports to spreadsheets.
package sheets

import (
	"context"

	"famledger/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportWriter appends one row per cycle report and returns a reference
	// to the written row.
	ReportWriter interface {
		AppendCycleReport(ctx context.Context, r core.CycleReport) (rowRef string, err error)
	}

	// ReportLister reads back the reports written for an account.
	ReportLister interface {
		ListCycleReports(ctx context.Context, accountID string) ([]core.CycleReport, error)
	}
)

// Header is the column layout of the report sheet.
var Header = []string{
	"Account", "Cycle start", "Cycle end", "Pending", "Approved", "Rejected", "Paid",
	"One-time in cycle", "Recurring run-rate", "Generated at",
}

// Row renders r in Header order. Amounts are decimal strings so the sheet
// parses them as numbers without float rounding.
func Row(r core.CycleReport) []any {
	return []any{
		r.AccountID,
		r.CycleStart.String(),
		r.CycleEnd.String(),
		r.Pending.String(),
		r.Approved.String(),
		r.Rejected.String(),
		r.Paid.String(),
		r.OneTimeInCycle.String(),
		r.RecurringRunRate.String(),
		r.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
