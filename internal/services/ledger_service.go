package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"famledger/internal/core"
	"famledger/internal/cycle"
	"famledger/internal/ledger"
)

// LedgerStore is the read side of the repository the ledger views need.
type LedgerStore interface {
	GetAccount(ctx context.Context, id string) (core.Account, error)
	ListExpenses(ctx context.Context, accountID string) ([]core.Expense, error)
	ListChildren(ctx context.Context, accountID string) ([]core.Child, error)
}

// CycleSummary is the dashboard view of one billing cycle.
//
// Totals and OneTimeInCycle are spend. RecurringRunRate is what the active
// templates commit to per period and is never added to spend.
type CycleSummary struct {
	AccountID        string                `json:"accountId"`
	Window           cycle.Window          `json:"window"`
	Totals           ledger.StatusTotals   `json:"totals"`
	OneTimeInCycle   core.Money            `json:"oneTimeInCycle"`
	OneTimeCount     int                   `json:"oneTimeCount"`
	RecurringRunRate core.Money            `json:"recurringRunRate"`
	ActiveTemplates  int                   `json:"activeTemplates"`
	Shared           ledger.ChildSummary   `json:"shared"`
	Children         []ledger.ChildSummary `json:"children"`
	GeneratedAt      time.Time             `json:"generatedAt"`
}

// Report flattens the summary for exporters.
func (s CycleSummary) Report() core.CycleReport {
	return core.CycleReport{
		AccountID:        s.AccountID,
		CycleStart:       core.Date{Time: s.Window.Start},
		CycleEnd:         core.Date{Time: s.Window.End},
		Pending:          s.Totals.Pending,
		Approved:         s.Totals.Approved,
		Rejected:         s.Totals.Rejected,
		Paid:             s.Totals.Paid,
		OneTimeInCycle:   s.OneTimeInCycle,
		RecurringRunRate: s.RecurringRunRate,
		GeneratedAt:      s.GeneratedAt,
	}
}

// LedgerService assembles read-only ledger views from storage. All
// arithmetic is delegated to the ledger and cycle packages.
type LedgerService struct {
	store      LedgerStore
	summarizer *ledger.Summarizer
	now        func() time.Time
}

// NewLedgerService creates a ledger service. A nil summarizer disables
// memoization of child summaries.
func NewLedgerService(store LedgerStore, summarizer *ledger.Summarizer) *LedgerService {
	return &LedgerService{
		store:      store,
		summarizer: summarizer,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for GeneratedAt.
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

// CurrentCycle returns the billing window of accountID containing at.
func (s *LedgerService) CurrentCycle(ctx context.Context, accountID string, at time.Time) (cycle.Window, error) {
	acct, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return cycle.Window{}, fmt.Errorf("load account: %w", err)
	}
	return cycle.ForAccount(acct, at), nil
}

type ledgerSnapshot struct {
	account  core.Account
	expenses []core.Expense
	children []core.Child
}

// load fetches the account, its expenses and its children concurrently.
func (s *LedgerService) load(ctx context.Context, accountID string, withChildren bool) (ledgerSnapshot, error) {
	var snap ledgerSnapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		acct, err := s.store.GetAccount(gctx, accountID)
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}
		snap.account = acct
		return nil
	})
	g.Go(func() error {
		expenses, err := s.store.ListExpenses(gctx, accountID)
		if err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}
		snap.expenses = expenses
		return nil
	})
	if withChildren {
		g.Go(func() error {
			children, err := s.store.ListChildren(gctx, accountID)
			if err != nil {
				return fmt.Errorf("load children: %w", err)
			}
			snap.children = children
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return ledgerSnapshot{}, err
	}
	return snap, nil
}

// Summary builds the billing-cycle overview of accountID at the given instant.
func (s *LedgerService) Summary(ctx context.Context, accountID string, at time.Time) (CycleSummary, error) {
	snap, err := s.load(ctx, accountID, true)
	if err != nil {
		return CycleSummary{}, err
	}

	w := cycle.ForAccount(snap.account, at)
	classified := ledger.Classify(snap.expenses, w, at)
	billingDay := snap.account.BillingCycleStartDay
	childIDs := lo.Map(snap.children, func(c core.Child, _ int) string { return c.ID })

	summary := CycleSummary{
		AccountID:        accountID,
		Window:           w,
		Totals:           ledger.SumByCycle(snap.expenses, w),
		OneTimeInCycle:   ledger.Sum(classified.OneTimeInCycle),
		OneTimeCount:     len(classified.OneTimeInCycle),
		RecurringRunRate: ledger.Sum(classified.ActiveRecurring),
		ActiveTemplates:  len(classified.ActiveRecurring),
		Shared:           s.summarize(snap.expenses, "", billingDay, at),
		Children:         s.summarizeAll(snap.expenses, childIDs, billingDay, at),
		GeneratedAt:      s.now(),
	}

	slog.DebugContext(ctx, "Built cycle summary",
		"account_id", accountID,
		"cycle_start", w.Start.Format("2006-01-02"),
		"cycle_end", w.End.Format("2006-01-02"),
		"one_time", summary.OneTimeCount,
		"templates", summary.ActiveTemplates)
	return summary, nil
}

// MonthTotals sums accountID's rows by status over a calendar month. This is
// the month-picker periodization and ignores the billing day.
func (s *LedgerService) MonthTotals(ctx context.Context, accountID string, year int, month time.Month) (ledger.StatusTotals, error) {
	if month < time.January || month > time.December {
		return ledger.StatusTotals{}, fmt.Errorf("month %d: %w", month, core.ErrInvalidMonth)
	}
	snap, err := s.load(ctx, accountID, false)
	if err != nil {
		return ledger.StatusTotals{}, err
	}
	return ledger.SumByCalendarMonth(snap.expenses, year, month), nil
}

// ChildSpending returns one child's cycle totals. An empty childID selects
// the shared rows.
func (s *LedgerService) ChildSpending(ctx context.Context, accountID, childID string, at time.Time) (ledger.ChildSummary, error) {
	snap, err := s.load(ctx, accountID, false)
	if err != nil {
		return ledger.ChildSummary{}, err
	}
	return s.summarize(snap.expenses, childID, snap.account.BillingCycleStartDay, at), nil
}

func (s *LedgerService) summarize(expenses []core.Expense, childID string, billingDay int, at time.Time) ledger.ChildSummary {
	if s.summarizer == nil {
		return ledger.SummarizeChild(expenses, childID, billingDay, at)
	}
	return s.summarizer.Summarize(expenses, childID, billingDay, at)
}

func (s *LedgerService) summarizeAll(expenses []core.Expense, childIDs []string, billingDay int, at time.Time) []ledger.ChildSummary {
	if s.summarizer == nil {
		return ledger.SummarizeChildren(expenses, childIDs, billingDay, at)
	}
	return s.summarizer.SummarizeAll(expenses, childIDs, billingDay, at)
}
