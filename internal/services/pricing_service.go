package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"famledger/internal/amqp"
	"famledger/internal/core"
	"famledger/internal/pricing"
)

// PricingStore is the plan and redemption side of the repository.
type PricingStore interface {
	GetPlan(ctx context.Context, slug string) (core.PricingPlan, error)
	ListPlans(ctx context.Context) ([]core.PricingPlan, error)
	RecordRedemption(ctx context.Context, couponID, accountID string, at time.Time) (string, error)
}

// ErrCouponRejected is returned by Confirm when the coupon on the request
// does not pass validation. The wrapped message is the user-facing reason.
var ErrCouponRejected = errors.New("coupon rejected")

// QuoteRequest is a plan selection at checkout.
type QuoteRequest struct {
	PlanSlug      string `json:"planSlug"`
	BillingPeriod string `json:"billingPeriod"`
	CouponCode    string `json:"couponCode"`
	AccountID     string `json:"accountId"`
}

// Confirmation is the outcome of a confirmed purchase.
type Confirmation struct {
	Quote        pricing.Quote `json:"quote"`
	RedemptionID string        `json:"redemptionId,omitempty"`
}

// PlanOffer is a plan as shown on the plan picker.
type PlanOffer struct {
	Slug              string     `json:"slug"`
	Name              string     `json:"name"`
	MonthlyPrice      core.Money `json:"monthlyPrice"`
	YearlyPrice       core.Money `json:"yearlyPrice"`
	MonthlyEquivalent core.Money `json:"monthlyEquivalent"`
	SavingsPercent    int        `json:"savingsPercent"`
	MaxMembers        int        `json:"maxMembers"`
}

// PricingService prices plan selections and records coupon redemptions.
type PricingService struct {
	store     PricingStore
	validator pricing.CouponValidator
	events    EventPublisher
	now       func() time.Time
}

func NewPricingService(store PricingStore, validator pricing.CouponValidator, events EventPublisher) *PricingService {
	if events == nil {
		events = NopPublisher{}
	}
	return &PricingService{
		store:     store,
		validator: validator,
		events:    events,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Plans lists every plan with its display figures.
func (s *PricingService) Plans(ctx context.Context) ([]PlanOffer, error) {
	plans, err := s.store.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	out := make([]PlanOffer, 0, len(plans))
	for _, p := range plans {
		out = append(out, PlanOffer{
			Slug:              p.Slug,
			Name:              p.Name,
			MonthlyPrice:      p.MonthlyPrice,
			YearlyPrice:       p.YearlyPrice,
			MonthlyEquivalent: pricing.MonthlyEquivalent(p),
			SavingsPercent:    pricing.SavingsPercent(p),
			MaxMembers:        p.MaxMembers,
		})
	}
	return out, nil
}

// Quote prices a plan selection. A refused coupon is reported on the quote
// and leaves the price undiscounted.
func (s *PricingService) Quote(ctx context.Context, req QuoteRequest) (pricing.Quote, error) {
	period, err := core.ParseBillingPeriod(req.BillingPeriod)
	if err != nil {
		return pricing.Quote{}, err
	}
	plan, err := s.store.GetPlan(ctx, req.PlanSlug)
	if err != nil {
		return pricing.Quote{}, fmt.Errorf("load plan: %w", err)
	}

	var validation *pricing.CouponValidation
	if code := strings.TrimSpace(req.CouponCode); code != "" && s.validator != nil {
		v, err := s.validator.ValidateCoupon(ctx, pricing.ValidationRequest{
			Code:          code,
			PlanSlug:      plan.Slug,
			BillingPeriod: period,
			AccountID:     req.AccountID,
		})
		if err != nil {
			return pricing.Quote{}, fmt.Errorf("validate coupon: %w", err)
		}
		validation = &v
	}

	return pricing.QuoteFor(plan, period, validation), nil
}

// Confirm prices the selection and, when a valid coupon is applied, records
// its redemption. The redemption counter is incremented atomically in
// storage, so a coupon that ran out between quote and confirm is refused
// there rather than overdrawn.
func (s *PricingService) Confirm(ctx context.Context, req QuoteRequest) (Confirmation, error) {
	if strings.TrimSpace(req.AccountID) == "" {
		return Confirmation{}, errors.New("account id is required")
	}
	quote, err := s.Quote(ctx, req)
	if err != nil {
		return Confirmation{}, err
	}
	if quote.CouponError != "" {
		return Confirmation{Quote: quote}, fmt.Errorf("%w: %s", ErrCouponRejected, quote.CouponError)
	}
	if quote.CouponID == "" {
		return Confirmation{Quote: quote}, nil
	}

	redemptionID, err := s.store.RecordRedemption(ctx, quote.CouponID, req.AccountID, s.now())
	if err != nil {
		return Confirmation{Quote: quote}, fmt.Errorf("record redemption: %w", err)
	}

	slog.InfoContext(ctx, "Purchase confirmed with coupon",
		"account_id", req.AccountID,
		"plan_slug", quote.PlanSlug,
		"billing_period", string(quote.BillingPeriod),
		"coupon_id", quote.CouponID,
		"final_price", quote.Breakdown.FinalPrice.String())

	publish(ctx, s.events, amqp.EventCouponRedeemed, req.AccountID, amqp.CouponRedeemed{
		RedemptionID:  redemptionID,
		CouponID:      quote.CouponID,
		Code:          strings.TrimSpace(req.CouponCode),
		PlanSlug:      quote.PlanSlug,
		BillingPeriod: string(quote.BillingPeriod),
		Discount:      quote.Breakdown.Discount.String(),
		FinalPrice:    quote.Breakdown.FinalPrice.String(),
	})

	return Confirmation{Quote: quote, RedemptionID: redemptionID}, nil
}
