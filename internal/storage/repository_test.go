package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famledger/internal/core"
	"famledger/internal/recurring"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedAccount(t *testing.T, repo *SQLiteRepository, id string) core.Account {
	t.Helper()
	acct := core.Account{
		ID:                   id,
		BillingCycleType:     core.CycleMonthly,
		BillingCycleStartDay: 10,
		PlanSlug:             "family",
		BillingPeriod:        core.PeriodMonthly,
	}
	require.NoError(t, repo.SaveAccount(context.Background(), acct))
	return acct
}

func expense(id, account, amount string, d core.Date) core.Expense {
	return core.Expense{
		ID:          id,
		AccountID:   account,
		Description: "expense " + id,
		Amount:      core.MustMoney(amount),
		Date:        d,
		Status:      core.StatusApproved,
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mig.db")
	v1, err := RunMigrations(path)
	require.NoError(t, err)
	v2, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, uint(2), v2)
}

func TestAccounts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		end := 25
		acct := core.Account{
			ID:                   "acc-custom",
			BillingCycleType:     core.CycleCustom,
			BillingCycleStartDay: 26,
			BillingCycleEndDay:   &end,
			PlanSlug:             "basic",
			BillingPeriod:        core.PeriodYearly,
		}
		require.NoError(t, repo.SaveAccount(ctx, acct))

		got, err := repo.GetAccount(ctx, "acc-custom")
		require.NoError(t, err)
		assert.Equal(t, acct, got)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := repo.GetAccount(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalid rejected", func(t *testing.T) {
		err := repo.SaveAccount(ctx, core.Account{ID: "bad", BillingCycleType: "weekly", BillingCycleStartDay: 1, BillingPeriod: core.PeriodMonthly})
		assert.ErrorIs(t, err, core.ErrInvalidCycleType)
	})

	t.Run("children", func(t *testing.T) {
		seedAccount(t, repo, "acc-kids")
		require.NoError(t, repo.SaveChild(ctx, core.Child{ID: "c2", AccountID: "acc-kids", Name: "Marco"}))
		require.NoError(t, repo.SaveChild(ctx, core.Child{ID: "c1", AccountID: "acc-kids", Name: "Lucia"}))

		kids, err := repo.ListChildren(ctx, "acc-kids")
		require.NoError(t, err)
		require.Len(t, kids, 2)
		assert.Equal(t, "Lucia", kids[0].Name)
	})
}

func TestExpenses(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "acc-1")

	tmpl := expense("tmpl-1", "acc-1", "45", core.NewDate(2024, time.January, 5))
	tmpl.IsRecurring = true
	tmpl.Frequency = core.Monthly
	tmpl.ChildID = "lucia"
	tmpl.HasEndDate = true
	tmpl.EndDate = core.NewDate(2024, time.December, 31)
	require.NoError(t, repo.CreateExpense(ctx, tmpl))

	one := expense("e-1", "acc-1", "12,50", core.NewDate(2024, time.March, 1))
	one.SplitEqually = true
	require.NoError(t, repo.CreateExpense(ctx, one))

	got, err := repo.GetExpense(ctx, "tmpl-1")
	require.NoError(t, err)
	assert.True(t, got.IsRecurring)
	assert.Equal(t, core.Monthly, got.Frequency)
	assert.Equal(t, "lucia", got.ChildID)
	assert.Equal(t, "2024-12-31", got.EndDate.String())
	assert.Equal(t, "45.00", got.Amount.String())

	all, err := repo.ListExpenses(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "tmpl-1", all[0].ID)
	assert.Equal(t, "12.50", all[1].Amount.String())
	assert.True(t, all[1].SplitEqually)

	templates, err := repo.ListActiveTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 1)

	t.Run("duplicate id", func(t *testing.T) {
		assert.ErrorIs(t, repo.CreateExpense(ctx, one), ErrDuplicate)
	})

	t.Run("invalid expense", func(t *testing.T) {
		bad := expense("e-bad", "acc-1", "1", core.Date{})
		assert.Error(t, repo.CreateExpense(ctx, bad))
	})

	t.Run("update template", func(t *testing.T) {
		edited, err := recurring.ApplyEdit(got, recurring.TemplateEdit{Amount: ptr(core.MustMoney("50"))})
		require.NoError(t, err)
		require.NoError(t, repo.UpdateTemplate(ctx, edited))
		reread, err := repo.GetExpense(ctx, "tmpl-1")
		require.NoError(t, err)
		assert.Equal(t, "50.00", reread.Amount.String())
	})
}

func ptr[T any](v T) *T { return &v }

func TestDeleteTemplateUnlinksOccurrences(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "acc-1")

	tmpl := expense("tmpl-1", "acc-1", "30", core.NewDate(2024, time.January, 1))
	tmpl.IsRecurring = true
	tmpl.Frequency = core.Monthly
	require.NoError(t, repo.CreateExpense(ctx, tmpl))

	for i, d := range []core.Date{core.NewDate(2024, time.January, 1), core.NewDate(2024, time.February, 1)} {
		occ := expense("occ-"+d.String(), "acc-1", "30", d)
		occ.TemplateID = "tmpl-1"
		require.NoError(t, repo.SaveOccurrence(ctx, occ, d.Add(time.Duration(i)*time.Hour)))
	}
	manual := expense("manual", "acc-1", "5", core.NewDate(2024, time.February, 3))
	require.NoError(t, repo.CreateExpense(ctx, manual))

	unlinked, err := repo.DeleteTemplate(ctx, "tmpl-1", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(2), unlinked)

	rows, err := repo.ListExpenses(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, rows, 4, "no row may be removed")
	for _, row := range rows {
		assert.Empty(t, row.TemplateID, row.ID)
	}

	deleted, err := repo.GetExpense(ctx, "tmpl-1")
	require.NoError(t, err)
	assert.Equal(t, recurring.Deleted, recurring.StateOf(deleted, time.Now()))

	templates, err := repo.ListActiveTemplates(ctx)
	require.NoError(t, err)
	assert.Empty(t, templates)

	t.Run("second delete", func(t *testing.T) {
		_, err := repo.DeleteTemplate(ctx, "tmpl-1", time.Now())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("not a template", func(t *testing.T) {
		_, err := repo.DeleteTemplate(ctx, "manual", time.Now())
		assert.ErrorIs(t, err, recurring.ErrNotTemplate)
	})
}

func TestLastRun(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "acc-1")

	tmpl := expense("tmpl-1", "acc-1", "30", core.NewDate(2024, time.January, 1))
	tmpl.IsRecurring = true
	tmpl.Frequency = core.Weekly
	require.NoError(t, repo.CreateExpense(ctx, tmpl))

	_, ok, err := repo.LastRun(ctx, "tmpl-1")
	require.NoError(t, err)
	assert.False(t, ok)

	runAt := time.Date(2024, 1, 8, 6, 30, 0, 0, time.UTC)
	occ := expense("occ-1", "acc-1", "30", core.NewDate(2024, time.January, 8))
	occ.TemplateID = "tmpl-1"
	require.NoError(t, repo.SaveOccurrence(ctx, occ, runAt))

	got, ok, err := repo.LastRun(ctx, "tmpl-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, runAt.Equal(got))

	t.Run("duplicate occurrence leaves last run untouched", func(t *testing.T) {
		err := repo.SaveOccurrence(ctx, occ, runAt.Add(time.Hour))
		assert.ErrorIs(t, err, ErrDuplicate)
		got, _, err := repo.LastRun(ctx, "tmpl-1")
		require.NoError(t, err)
		assert.True(t, runAt.Equal(got))
	})
}

func TestPlans(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	plans, err := repo.ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "basic", plans[0].Slug)

	family, err := repo.GetPlan(ctx, "family")
	require.NoError(t, err)
	assert.Equal(t, "9.99", family.MonthlyPrice.String())
	assert.Equal(t, "99.99", family.YearlyPrice.String())
	assert.Equal(t, 6, family.MaxMembers)

	_, err = repo.GetPlan(ctx, "enterprise")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCoupons(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	limit := 2
	c := core.Coupon{
		ID:                      "cpn-1",
		Code:                    "WELCOME",
		DiscountType:            core.DiscountPercentage,
		DiscountValue:           core.MustMoney("20"),
		ApplicablePlans:         []string{"family", "basic"},
		ApplicableBillingPeriod: core.PeriodMonthly,
		MaxRedemptions:          &limit,
		ValidFrom:               core.NewDate(2024, time.January, 1),
		ValidUntil:              core.NewDate(2024, time.December, 31),
		IsActive:                true,
	}
	require.NoError(t, repo.SaveCoupon(ctx, c))

	got, err := repo.GetCouponByCode(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, c.ApplicablePlans, got.ApplicablePlans)
	assert.Equal(t, 2, *got.MaxRedemptions)
	assert.True(t, got.IsActive)
	assert.Equal(t, "20.00", got.DiscountValue.String())

	_, err = repo.GetCouponByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.SaveCoupon(ctx, c), ErrDuplicate)

	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err = repo.RecordRedemption(ctx, "cpn-1", "acc-1", at)
	require.NoError(t, err)

	redeemed, err := repo.HasRedeemed(ctx, "cpn-1", "acc-1")
	require.NoError(t, err)
	assert.True(t, redeemed)

	_, err = repo.RecordRedemption(ctx, "cpn-1", "acc-1", at)
	assert.ErrorIs(t, err, ErrAlreadyRedeemed)

	after, err := repo.GetCouponByCode(ctx, "WELCOME")
	require.NoError(t, err)
	assert.Equal(t, 1, after.CurrentRedemptions, "failed redemption must roll back the increment")

	_, err = repo.RecordRedemption(ctx, "cpn-1", "acc-2", at)
	require.NoError(t, err)
	_, err = repo.RecordRedemption(ctx, "cpn-1", "acc-3", at)
	assert.ErrorIs(t, err, ErrRedemptionLimit)

	_, err = repo.RecordRedemption(ctx, "cpn-missing", "acc-1", at)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentRedemptionsRespectLimit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	limit := 3
	require.NoError(t, repo.SaveCoupon(ctx, core.Coupon{
		ID:             "cpn-race",
		Code:           "RACE",
		DiscountType:   core.DiscountFixed,
		DiscountValue:  core.MustMoney("5"),
		MaxRedemptions: &limit,
		IsActive:       true,
	}))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.RecordRedemption(ctx, "cpn-race", "acc-"+string(rune('a'+i)), time.Now())
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, limit, success)
	c, err := repo.GetCouponByCode(ctx, "race")
	require.NoError(t, err)
	assert.Equal(t, limit, c.CurrentRedemptions)
}
