package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famledger/internal/amqp"
	"famledger/internal/core"
	"famledger/internal/pricing"
	"famledger/internal/storage"
)

var checkoutDay = time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

func intPtr(n int) *int { return &n }

func seedCoupons(t *testing.T, repo *storage.SQLiteRepository) {
	t.Helper()
	coupons := []core.Coupon{
		{Code: "WELCOME", DiscountType: core.DiscountPercentage, DiscountValue: money("20"), IsActive: true},
		{Code: "YEARLY5", DiscountType: core.DiscountFixed, DiscountValue: money("5"), ApplicableBillingPeriod: core.PeriodYearly, IsActive: true},
		{Code: "ONCE", DiscountType: core.DiscountPercentage, DiscountValue: money("10"), MaxRedemptions: intPtr(1), IsActive: true},
		{Code: "FULL", DiscountType: core.DiscountFixed, DiscountValue: money("1"), MaxRedemptions: intPtr(2), CurrentRedemptions: 2, IsActive: true},
		{Code: "OLD", DiscountType: core.DiscountFixed, DiscountValue: money("1"), ValidUntil: day(2024, time.January, 31), IsActive: true},
		{Code: "SOON", DiscountType: core.DiscountFixed, DiscountValue: money("1"), ValidFrom: day(2024, time.April, 1), IsActive: true},
		{Code: "OFF", DiscountType: core.DiscountFixed, DiscountValue: money("1"), IsActive: false},
		{Code: "BASICONLY", DiscountType: core.DiscountFreeMonths, DiscountValue: money("1"), ApplicablePlans: []string{"basic"}, IsActive: true},
		{Code: "LASTDAY", DiscountType: core.DiscountFixed, DiscountValue: money("1"), ValidUntil: day(2024, time.March, 1), IsActive: true},
	}
	for _, c := range coupons {
		require.NoError(t, repo.SaveCoupon(context.Background(), c), c.Code)
	}
}

func newPricingFixture(t *testing.T) (*storage.SQLiteRepository, *PricingService, *recordingPublisher) {
	t.Helper()
	repo := newTestRepo(t)
	seedCoupons(t, repo)
	pub := &recordingPublisher{}
	validator := NewStoreCouponValidator(repo).WithClock(func() time.Time { return checkoutDay })
	svc := NewPricingService(repo, validator, pub)
	svc.now = func() time.Time { return checkoutDay }
	return repo, svc, pub
}

func TestStoreCouponValidator(t *testing.T) {
	repo := newTestRepo(t)
	seedCoupons(t, repo)
	_, err := repo.RecordRedemption(context.Background(), mustCouponID(t, repo, "WELCOME"), "acc-used", checkoutDay)
	require.NoError(t, err)
	v := NewStoreCouponValidator(repo).WithClock(func() time.Time { return checkoutDay })

	tests := []struct {
		name    string
		req     pricing.ValidationRequest
		valid   bool
		message string
	}{
		{"valid", pricing.ValidationRequest{Code: "WELCOME", PlanSlug: "family", BillingPeriod: core.PeriodMonthly}, true, ""},
		{"case insensitive", pricing.ValidationRequest{Code: " welcome ", PlanSlug: "family", BillingPeriod: core.PeriodMonthly}, true, ""},
		{"empty", pricing.ValidationRequest{Code: "  ", PlanSlug: "family"}, false, MsgCouponInvalid},
		{"unknown", pricing.ValidationRequest{Code: "NOPE", PlanSlug: "family"}, false, MsgCouponInvalid},
		{"inactive", pricing.ValidationRequest{Code: "OFF", PlanSlug: "family"}, false, MsgCouponInactive},
		{"expired", pricing.ValidationRequest{Code: "OLD", PlanSlug: "family"}, false, MsgCouponExpired},
		{"last day inclusive", pricing.ValidationRequest{Code: "LASTDAY", PlanSlug: "family", BillingPeriod: core.PeriodMonthly}, true, ""},
		{"not started", pricing.ValidationRequest{Code: "SOON", PlanSlug: "family"}, false, MsgCouponNotStarted},
		{"wrong plan", pricing.ValidationRequest{Code: "BASICONLY", PlanSlug: "family", BillingPeriod: core.PeriodMonthly}, false, MsgCouponWrongPlan},
		{"wrong period", pricing.ValidationRequest{Code: "YEARLY5", PlanSlug: "family", BillingPeriod: core.PeriodMonthly}, false, "This coupon is only valid for yearly billing"},
		{"exhausted", pricing.ValidationRequest{Code: "FULL", PlanSlug: "family", BillingPeriod: core.PeriodMonthly}, false, MsgCouponExhausted},
		{"already used", pricing.ValidationRequest{Code: "WELCOME", PlanSlug: "family", BillingPeriod: core.PeriodMonthly, AccountID: "acc-used"}, false, MsgCouponUsed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ValidateCoupon(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, got.IsValid)
			assert.Equal(t, tt.message, got.ErrorMessage)
			if tt.valid {
				assert.NotEmpty(t, got.CouponID)
			}
		})
	}
}

func mustCouponID(t *testing.T, repo *storage.SQLiteRepository, code string) string {
	t.Helper()
	c, err := repo.GetCouponByCode(context.Background(), code)
	require.NoError(t, err)
	return c.ID
}

func TestPricingService_Plans(t *testing.T) {
	_, svc, _ := newPricingFixture(t)

	plans, err := svc.Plans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "basic", plans[0].Slug)
	assert.Equal(t, "family", plans[1].Slug)
	assert.Equal(t, "8.33", plans[1].MonthlyEquivalent.String())
	assert.Equal(t, 17, plans[1].SavingsPercent)
}

func TestPricingService_Quote(t *testing.T) {
	_, svc, _ := newPricingFixture(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		req         QuoteRequest
		base        string
		discount    string
		final       string
		couponError string
	}{
		{"no coupon", QuoteRequest{PlanSlug: "family", BillingPeriod: "monthly"}, "9.99", "0.00", "9.99", ""},
		{"yearly no coupon", QuoteRequest{PlanSlug: "family", BillingPeriod: "yearly"}, "99.99", "0.00", "99.99", ""},
		{"percentage", QuoteRequest{PlanSlug: "family", BillingPeriod: "monthly", CouponCode: "WELCOME"}, "9.99", "2.00", "7.99", ""},
		{"fixed yearly", QuoteRequest{PlanSlug: "basic", BillingPeriod: "yearly", CouponCode: "YEARLY5"}, "49.99", "5.00", "44.99", ""},
		{"free month", QuoteRequest{PlanSlug: "basic", BillingPeriod: "monthly", CouponCode: "BASICONLY"}, "4.99", "4.99", "0.00", ""},
		{"refused coupon", QuoteRequest{PlanSlug: "family", BillingPeriod: "monthly", CouponCode: "OLD"}, "9.99", "0.00", "9.99", MsgCouponExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := svc.Quote(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.base, q.Breakdown.BasePrice.String())
			assert.Equal(t, tt.discount, q.Breakdown.Discount.String())
			assert.Equal(t, tt.final, q.Breakdown.FinalPrice.String())
			assert.Equal(t, tt.couponError, q.CouponError)
		})
	}

	t.Run("unknown plan", func(t *testing.T) {
		_, err := svc.Quote(ctx, QuoteRequest{PlanSlug: "enterprise", BillingPeriod: "monthly"})
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	})

	t.Run("bad period", func(t *testing.T) {
		_, err := svc.Quote(ctx, QuoteRequest{PlanSlug: "family", BillingPeriod: "weekly"})
		assert.True(t, errors.Is(err, core.ErrInvalidBillingPeriod))
	})
}

func TestPricingService_Confirm(t *testing.T) {
	repo, svc, pub := newPricingFixture(t)
	ctx := context.Background()

	t.Run("records redemption and publishes", func(t *testing.T) {
		c, err := svc.Confirm(ctx, QuoteRequest{PlanSlug: "family", BillingPeriod: "monthly", CouponCode: "WELCOME", AccountID: "acc-1"})
		require.NoError(t, err)
		assert.NotEmpty(t, c.RedemptionID)
		assert.Equal(t, "7.99", c.Quote.Breakdown.FinalPrice.String())

		require.Equal(t, []string{amqp.EventCouponRedeemed}, pub.types())
		var payload amqp.CouponRedeemed
		require.NoError(t, pub.events[0].Decode(&payload))
		assert.Equal(t, "WELCOME", payload.Code)
		assert.Equal(t, "7.99", payload.FinalPrice)
		assert.Equal(t, c.RedemptionID, payload.RedemptionID)

		used, err := repo.HasRedeemed(ctx, c.Quote.CouponID, "acc-1")
		require.NoError(t, err)
		assert.True(t, used)
	})

	t.Run("same account cannot reuse", func(t *testing.T) {
		_, err := svc.Confirm(ctx, QuoteRequest{PlanSlug: "family", BillingPeriod: "monthly", CouponCode: "WELCOME", AccountID: "acc-1"})
		assert.True(t, errors.Is(err, ErrCouponRejected))
		assert.Contains(t, err.Error(), MsgCouponUsed)
	})

	t.Run("limit reached by another account", func(t *testing.T) {
		_, err := svc.Confirm(ctx, QuoteRequest{PlanSlug: "family", BillingPeriod: "monthly", CouponCode: "ONCE", AccountID: "acc-1"})
		require.NoError(t, err)
		_, err = svc.Confirm(ctx, QuoteRequest{PlanSlug: "family", BillingPeriod: "monthly", CouponCode: "ONCE", AccountID: "acc-2"})
		assert.True(t, errors.Is(err, ErrCouponRejected))
		assert.Contains(t, err.Error(), MsgCouponExhausted)
	})

	t.Run("no coupon records nothing", func(t *testing.T) {
		c, err := svc.Confirm(ctx, QuoteRequest{PlanSlug: "basic", BillingPeriod: "monthly", AccountID: "acc-3"})
		require.NoError(t, err)
		assert.Empty(t, c.RedemptionID)
	})

	t.Run("account required", func(t *testing.T) {
		_, err := svc.Confirm(ctx, QuoteRequest{PlanSlug: "basic", BillingPeriod: "monthly"})
		assert.Error(t, err)
	})
}

// alwaysValid approves any code for a fixed coupon, standing in for a
// validator that ran before a concurrent confirmation used the last slot.
type alwaysValid struct{ couponID string }

func (v alwaysValid) ValidateCoupon(context.Context, pricing.ValidationRequest) (pricing.CouponValidation, error) {
	return pricing.CouponValidation{
		IsValid:  true,
		Discount: pricing.Discount{Type: core.DiscountFixed, Value: money("1").Value},
		CouponID: v.couponID,
	}, nil
}

func TestPricingService_ConfirmRaceLosesAtStorage(t *testing.T) {
	repo := newTestRepo(t)
	seedCoupons(t, repo)
	pub := &recordingPublisher{}
	svc := NewPricingService(repo, alwaysValid{couponID: mustCouponID(t, repo, "FULL")}, pub)

	_, err := svc.Confirm(context.Background(), QuoteRequest{PlanSlug: "family", BillingPeriod: "monthly", CouponCode: "FULL", AccountID: "acc-9"})
	assert.True(t, errors.Is(err, storage.ErrRedemptionLimit), "got %v", err)
	assert.Empty(t, pub.types(), "nothing is published for a refused redemption")
}

func TestPricingService_PublishFailureKeepsRedemption(t *testing.T) {
	repo, svc, pub := newPricingFixture(t)
	pub.err = errBrokerDown

	c, err := svc.Confirm(context.Background(), QuoteRequest{PlanSlug: "family", BillingPeriod: "monthly", CouponCode: "WELCOME", AccountID: "acc-1"})
	require.NoError(t, err)

	used, err := repo.HasRedeemed(context.Background(), c.Quote.CouponID, "acc-1")
	require.NoError(t, err)
	assert.True(t, used)
}
