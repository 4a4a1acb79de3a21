package pricing

import (
	"github.com/shopspring/decimal"

	"famledger/internal/core"
)

var (
	twelve = decimal.NewFromInt(12)
	half   = decimal.NewFromFloat(0.5)
)

// BasePrice is the plan price for the billing period.
func BasePrice(plan core.PricingPlan, period core.BillingPeriod) core.Money {
	switch period {
	case core.PeriodYearly:
		return plan.YearlyPrice
	case core.PeriodMonthly:
		return plan.MonthlyPrice
	default:
		return plan.MonthlyPrice
	}
}

// MonthlyEquivalent is the yearly price spread over twelve months, rounded to
// cents. Display only.
func MonthlyEquivalent(plan core.PricingPlan) core.Money {
	return core.NewMoney(plan.YearlyPrice.Value.Div(twelve).Round(2))
}

// SavingsPercent is how much cheaper yearly billing is than twelve monthly
// payments, rounded half up to a whole percent. A free monthly price yields 0.
func SavingsPercent(plan core.PricingPlan) int {
	annual := plan.MonthlyPrice.Value.Mul(twelve)
	if annual.IsZero() {
		return 0
	}
	pct := annual.Sub(plan.YearlyPrice.Value).Div(annual).Mul(hundred)
	return int(pct.Add(half).Floor().IntPart())
}

// Quote is the full price presentation for a plan selection.
type Quote struct {
	PlanSlug          string             `json:"planSlug"`
	BillingPeriod     core.BillingPeriod `json:"billingPeriod"`
	Breakdown         Breakdown          `json:"breakdown"`
	MonthlyEquivalent core.Money         `json:"monthlyEquivalent"`
	SavingsPercent    int                `json:"savingsPercent"`
	CouponID          string             `json:"couponId,omitempty"`
	CouponError       string             `json:"couponError,omitempty"`
}

// QuoteFor prices plan for period. A nil or invalid validation applies no
// discount; an invalid one surfaces its message.
func QuoteFor(plan core.PricingPlan, period core.BillingPeriod, validation *CouponValidation) Quote {
	base := BasePrice(plan, period)
	q := Quote{
		PlanSlug:          plan.Slug,
		BillingPeriod:     period,
		Breakdown:         Breakdown{BasePrice: base, Discount: core.Zero, FinalPrice: base},
		MonthlyEquivalent: MonthlyEquivalent(plan),
		SavingsPercent:    SavingsPercent(plan),
	}
	if validation == nil {
		return q
	}
	if !validation.IsValid {
		q.CouponError = validation.ErrorMessage
		return q
	}
	q.Breakdown = ApplyDiscount(validation.Discount, base, plan.MonthlyPrice, period)
	q.CouponID = validation.CouponID
	return q
}
