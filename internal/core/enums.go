package core

import "fmt"

const (
	StatusPending  ExpenseStatus = "pending"
	StatusApproved ExpenseStatus = "approved"
	StatusRejected ExpenseStatus = "rejected"
	StatusPaid     ExpenseStatus = "paid"
)

const (
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
	DiscountFreeMonths DiscountType = "free_months"
)

const (
	CycleMonthly BillingCycleType = "monthly"
	CycleCustom  BillingCycleType = "custom"
)

const (
	PeriodMonthly BillingPeriod = "monthly"
	PeriodYearly  BillingPeriod = "yearly"
)

type (
	// ExpenseStatus is the approval state of an expense row.
	ExpenseStatus string

	// Frequency is how often a recurring template repeats.
	Frequency string

	// DiscountType selects how a coupon's DiscountValue is interpreted.
	DiscountType string

	// BillingCycleType selects how an account's billing cycle is configured.
	BillingCycleType string

	// BillingPeriod is the subscription billing period.
	BillingPeriod string
)

// ExpenseStatuses lists every status in display order.
var ExpenseStatuses = []ExpenseStatus{StatusPending, StatusApproved, StatusRejected, StatusPaid}

func (s ExpenseStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusPaid:
		return true
	default:
		return false
	}
}

// Settled reports whether an expense in this status counts toward spend.
func (s ExpenseStatus) Settled() bool {
	switch s {
	case StatusApproved, StatusPaid:
		return true
	case StatusPending, StatusRejected:
		return false
	default:
		return false
	}
}

func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

func (d DiscountType) Valid() bool {
	switch d {
	case DiscountPercentage, DiscountFixed, DiscountFreeMonths:
		return true
	default:
		return false
	}
}

func (c BillingCycleType) Valid() bool {
	switch c {
	case CycleMonthly, CycleCustom:
		return true
	default:
		return false
	}
}

func (p BillingPeriod) Valid() bool {
	switch p {
	case PeriodMonthly, PeriodYearly:
		return true
	default:
		return false
	}
}

// IsYearly reports whether the period bills once a year.
func (p BillingPeriod) IsYearly() bool {
	return p == PeriodYearly
}

func ParseExpenseStatus(s string) (ExpenseStatus, error) {
	v := ExpenseStatus(s)
	if !v.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return v, nil
}

func ParseFrequency(s string) (Frequency, error) {
	v := Frequency(s)
	if !v.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
	}
	return v, nil
}

func ParseDiscountType(s string) (DiscountType, error) {
	v := DiscountType(s)
	if !v.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDiscountType, s)
	}
	return v, nil
}

func ParseBillingCycleType(s string) (BillingCycleType, error) {
	v := BillingCycleType(s)
	if !v.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCycleType, s)
	}
	return v, nil
}

func ParseBillingPeriod(s string) (BillingPeriod, error) {
	v := BillingPeriod(s)
	if !v.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidBillingPeriod, s)
	}
	return v, nil
}
