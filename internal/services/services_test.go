package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"famledger/internal/amqp"
	"famledger/internal/core"
	"famledger/internal/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e amqp.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

var errBrokerDown = errors.New("broker down")

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "services.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func day(y int, m time.Month, d int) core.Date { return core.NewDate(y, m, d) }

func at(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.UTC) }

func row(id, amount string, status core.ExpenseStatus, d core.Date, child string) core.Expense {
	return core.Expense{
		ID:          id,
		AccountID:   "acc-1",
		Description: "expense " + id,
		Amount:      core.MustMoney(amount),
		Date:        d,
		Status:      status,
		ChildID:     child,
	}
}

func tmpl(id, amount string, freq core.Frequency, start core.Date, child string) core.Expense {
	e := row(id, amount, core.StatusApproved, start, child)
	e.IsRecurring = true
	e.Frequency = freq
	return e
}

// seedLedger stores an account billed on the 10th with two children and a
// mix of one-time rows and templates. For at(2024, 3, 1) the cycle is
// [2024-02-10, 2024-03-10).
func seedLedger(t *testing.T, repo *storage.SQLiteRepository) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.SaveAccount(ctx, core.Account{
		ID:                   "acc-1",
		BillingCycleType:     core.CycleMonthly,
		BillingCycleStartDay: 10,
		PlanSlug:             "family",
		BillingPeriod:        core.PeriodMonthly,
	}))
	require.NoError(t, repo.SaveChild(ctx, core.Child{ID: "lucia", AccountID: "acc-1", Name: "Lucia"}))
	require.NoError(t, repo.SaveChild(ctx, core.Child{ID: "marco", AccountID: "acc-1", Name: "Marco"}))

	expired := tmpl("t-gym", "20.00", core.Weekly, day(2024, time.January, 5), "")
	expired.HasEndDate = true
	expired.EndDate = day(2024, time.February, 1)

	for _, e := range []core.Expense{
		row("e-books", "40.00", core.StatusApproved, day(2024, time.February, 15), "lucia"),
		row("e-trip", "80.00", core.StatusPaid, day(2024, time.March, 5), "lucia"),
		row("e-food", "15.00", core.StatusPending, day(2024, time.February, 20), ""),
		row("e-early", "50.00", core.StatusApproved, day(2024, time.February, 9), ""),
		row("e-refused", "10.00", core.StatusRejected, day(2024, time.March, 1), ""),
		tmpl("t-piano", "45.00", core.Monthly, day(2024, time.January, 1), "lucia"),
		tmpl("t-rent", "900.00", core.Monthly, day(2024, time.January, 10), ""),
		expired,
	} {
		require.NoError(t, repo.CreateExpense(ctx, e), e.ID)
	}
}
