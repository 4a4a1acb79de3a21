package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"famledger/internal/core"
	"famledger/internal/pricing"
	"famledger/internal/storage"
)

// CouponStore is the coupon lookup side of the repository.
type CouponStore interface {
	GetCouponByCode(ctx context.Context, code string) (core.Coupon, error)
	HasRedeemed(ctx context.Context, couponID, accountID string) (bool, error)
}

// Messages shown to the user when a coupon is refused.
const (
	MsgCouponInvalid    = "Invalid coupon code"
	MsgCouponInactive   = "This coupon is no longer active"
	MsgCouponNotStarted = "This coupon is not yet valid"
	MsgCouponExpired    = "This coupon has expired"
	MsgCouponWrongPlan  = "This coupon is not valid for the selected plan"
	MsgCouponExhausted  = "This coupon has reached its redemption limit"
	MsgCouponUsed       = "You have already used this coupon"
)

// StoreCouponValidator judges coupon codes against the stored coupons.
type StoreCouponValidator struct {
	store CouponStore
	now   func() time.Time
}

func NewStoreCouponValidator(store CouponStore) *StoreCouponValidator {
	return &StoreCouponValidator{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for the validity window check.
func (v *StoreCouponValidator) WithClock(now func() time.Time) *StoreCouponValidator {
	v.now = now
	return v
}

// ValidateCoupon checks, in order: existence, active flag, validity window,
// plan, billing period, redemption limit and reuse by the same account. Only
// storage failures are returned as errors; a refused coupon is a valid result.
func (v *StoreCouponValidator) ValidateCoupon(ctx context.Context, req pricing.ValidationRequest) (pricing.CouponValidation, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return refuse(MsgCouponInvalid), nil
	}

	c, err := v.store.GetCouponByCode(ctx, code)
	if errors.Is(err, storage.ErrNotFound) {
		return refuse(MsgCouponInvalid), nil
	}
	if err != nil {
		return pricing.CouponValidation{}, fmt.Errorf("load coupon: %w", err)
	}

	now := v.now()
	switch {
	case !c.IsActive:
		return refuse(MsgCouponInactive), nil
	case !c.ValidFrom.IsZero() && now.Before(c.ValidFrom.Time):
		return refuse(MsgCouponNotStarted), nil
	case !c.InWindow(now):
		return refuse(MsgCouponExpired), nil
	case !c.AppliesToPlan(req.PlanSlug):
		return refuse(MsgCouponWrongPlan), nil
	case !c.AppliesToPeriod(req.BillingPeriod):
		return refuse(fmt.Sprintf("This coupon is only valid for %s billing", c.ApplicableBillingPeriod)), nil
	case c.Exhausted():
		return refuse(MsgCouponExhausted), nil
	}

	if req.AccountID != "" {
		used, err := v.store.HasRedeemed(ctx, c.ID, req.AccountID)
		if err != nil {
			return pricing.CouponValidation{}, fmt.Errorf("check redemption: %w", err)
		}
		if used {
			return refuse(MsgCouponUsed), nil
		}
	}

	return pricing.CouponValidation{
		IsValid:  true,
		Discount: pricing.DiscountFor(c),
		CouponID: c.ID,
	}, nil
}

func refuse(msg string) pricing.CouponValidation {
	return pricing.CouponValidation{IsValid: false, ErrorMessage: msg}
}
