// Package pricing computes subscription prices from plans, billing periods
// and coupon discounts.
//
// Nothing here decides whether a coupon may be used: that is the job of a
// CouponValidator, whose result is consumed as-is. Recording a redemption is
// likewise a separate step performed only after a purchase is confirmed.
package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"famledger/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Discount describes a validated coupon's effect.
type Discount struct {
	Type  core.DiscountType `json:"discountType"`
	Value decimal.Decimal   `json:"discountValue"`
}

// DiscountFor extracts the discount descriptor of a coupon.
func DiscountFor(c core.Coupon) Discount {
	return Discount{Type: c.DiscountType, Value: c.DiscountValue.Value}
}

// Breakdown is the price shown at checkout.
type Breakdown struct {
	BasePrice  core.Money `json:"basePrice"`
	Discount   core.Money `json:"discount"`
	FinalPrice core.Money `json:"finalPrice"`
}

// CouponValidation is the result of the external coupon rule check. The
// error message is passed through to the user unchanged.
type CouponValidation struct {
	IsValid      bool     `json:"isValid"`
	Discount     Discount `json:"discount"`
	CouponID     string   `json:"couponId,omitempty"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
}

// ValidationRequest carries what a validator needs to judge a coupon code.
type ValidationRequest struct {
	Code          string
	PlanSlug      string
	BillingPeriod core.BillingPeriod
	AccountID     string
}

// CouponValidator decides whether a coupon code may be used. Redemption
// limits, expiry, applicability and per-account reuse are its concern.
type CouponValidator interface {
	ValidateCoupon(ctx context.Context, req ValidationRequest) (CouponValidation, error)
}

// ApplyDiscount computes the discounted price of base.
//
// Percentage values are clamped to [0, 100]. Free months are worth
// monthlyPrice per month and only apply to monthly billing. The discount is
// always clamped to [0, base] so the final price is never negative.
func ApplyDiscount(d Discount, base, monthlyPrice core.Money, billing core.BillingPeriod) Breakdown {
	var discount core.Money

	switch d.Type {
	case core.DiscountPercentage:
		pct := decimal.Min(decimal.Max(d.Value, decimal.Zero), hundred)
		discount = base.Percent(pct).Round()
	case core.DiscountFixed:
		discount = core.NewMoney(d.Value).Min(base)
	case core.DiscountFreeMonths:
		switch billing {
		case core.PeriodMonthly:
			discount = monthlyPrice.Mul(d.Value)
		case core.PeriodYearly:
			discount = core.Zero
		default:
			discount = core.Zero
		}
	default:
		discount = core.Zero
	}

	discount = discount.Max(core.Zero).Min(base.Max(core.Zero))
	return Breakdown{
		BasePrice:  base,
		Discount:   discount,
		FinalPrice: base.Sub(discount).Max(core.Zero),
	}
}
