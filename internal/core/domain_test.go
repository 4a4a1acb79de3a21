package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false},
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok {
			assert.NoError(t, err, "case %d", i)
		} else {
			assert.Error(t, err, "case %d", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-03-05 ")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", d.String())

	d, err = ParseDate("05/03/2024")
	assert.Error(t, err)
	assert.True(t, d.IsZero())
	assert.Equal(t, "", d.String())
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Date:        NewDate(2025, 1, 1),
		Description: "swimming lessons",
		Amount:      MustMoney("45.00"),
		Status:      StatusPending,
	}
	require.NoError(t, good.Validate())

	recurring := good
	recurring.IsRecurring = true
	recurring.Frequency = Monthly
	recurring.HasEndDate = true
	recurring.EndDate = NewDate(2025, 6, 1)
	require.NoError(t, recurring.Validate())

	tests := []struct {
		name   string
		mutate func(*Expense)
		want   error
	}{
		{"zero date", func(e *Expense) { e.Date = Date{} }, nil},
		{"empty description", func(e *Expense) { e.Description = "  " }, ErrEmptyDescription},
		{"negative amount", func(e *Expense) { e.Amount = MoneyFromInt(-1) }, ErrInvalidAmount},
		{"unknown status", func(e *Expense) { e.Status = "archived" }, ErrInvalidStatus},
		{"recurring without frequency", func(e *Expense) { e.IsRecurring = true }, ErrInvalidFrequency},
		{"end date flag without date", func(e *Expense) { e.HasEndDate = true }, ErrMissingEndDate},
		{"end before start", func(e *Expense) {
			e.HasEndDate = true
			e.EndDate = NewDate(2024, 12, 1)
		}, ErrEndBeforeStart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := good
			tt.mutate(&e)
			err := e.Validate()
			require.Error(t, err)
			if tt.want != nil {
				assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAccountValidate(t *testing.T) {
	end := 20
	acct := Account{
		ID:                   "acc-1",
		BillingCycleType:     CycleCustom,
		BillingCycleStartDay: 21,
		BillingCycleEndDay:   &end,
		PlanSlug:             "family",
		BillingPeriod:        PeriodMonthly,
	}
	require.NoError(t, acct.Validate())

	monthly := acct
	monthly.BillingCycleType = CycleMonthly
	assert.Error(t, monthly.Validate(), "end day only allowed on custom cycles")

	badDay := acct
	badDay.BillingCycleStartDay = 32
	assert.ErrorIs(t, badDay.Validate(), ErrInvalidDay)

	badPeriod := acct
	badPeriod.BillingPeriod = "weekly"
	assert.ErrorIs(t, badPeriod.Validate(), ErrInvalidBillingPeriod)
}

func TestCouponRules(t *testing.T) {
	limit := 2
	c := Coupon{
		Code:                    "WELCOME",
		DiscountType:            DiscountPercentage,
		DiscountValue:           MoneyFromInt(20),
		ApplicablePlans:         []string{"family"},
		ApplicableBillingPeriod: PeriodYearly,
		MaxRedemptions:          &limit,
		CurrentRedemptions:      1,
		ValidFrom:               NewDate(2024, 1, 1),
		ValidUntil:              NewDate(2024, 3, 31),
		IsActive:                true,
	}
	require.NoError(t, c.Validate())

	assert.True(t, c.AppliesToPlan("family"))
	assert.False(t, c.AppliesToPlan("personal"))
	assert.True(t, c.AppliesToPeriod(PeriodYearly))
	assert.False(t, c.AppliesToPeriod(PeriodMonthly))
	assert.False(t, c.Exhausted())

	c.CurrentRedemptions = 2
	assert.True(t, c.Exhausted())

	assert.False(t, c.InWindow(time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC)))
	assert.True(t, c.InWindow(time.Date(2024, 3, 31, 18, 0, 0, 0, time.UTC)))
	assert.False(t, c.InWindow(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))

	open := Coupon{Code: "ANY", DiscountType: DiscountFixed, DiscountValue: MoneyFromInt(5)}
	assert.True(t, open.AppliesToPlan("personal"))
	assert.True(t, open.AppliesToPeriod(PeriodMonthly))
	assert.False(t, open.Exhausted())

	tooMuch := c
	tooMuch.DiscountValue = MoneyFromInt(150)
	assert.Error(t, tooMuch.Validate())
}

func TestEnumParsing(t *testing.T) {
	s, err := ParseExpenseStatus("paid")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, s)

	_, err = ParseExpenseStatus("refunded")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = ParseFrequency("daily")
	assert.ErrorIs(t, err, ErrInvalidFrequency)

	d, err := ParseDiscountType("free_months")
	require.NoError(t, err)
	assert.Equal(t, DiscountFreeMonths, d)

	_, err = ParseBillingCycleType("weekly")
	assert.ErrorIs(t, err, ErrInvalidCycleType)

	p, err := ParseBillingPeriod("yearly")
	require.NoError(t, err)
	assert.True(t, p.IsYearly())
}

func TestStatusSettled(t *testing.T) {
	want := map[ExpenseStatus]bool{
		StatusPending:  false,
		StatusApproved: true,
		StatusRejected: false,
		StatusPaid:     true,
	}
	for _, s := range ExpenseStatuses {
		assert.Equal(t, want[s], s.Settled(), string(s))
	}
}
