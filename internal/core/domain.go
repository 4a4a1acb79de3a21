package core

import (
	"errors"
	"strings"
	"time"
)

type (
	Date struct {
		time.Time
	}

	// Account carries the tenant's billing configuration.
	Account struct {
		ID                   string
		BillingCycleType     BillingCycleType
		BillingCycleStartDay int  // 1-31; anything else is treated as 1
		BillingCycleEndDay   *int // custom cycles only
		PlanSlug             string
		BillingPeriod        BillingPeriod
	}

	// Expense is a ledger row. A row with IsRecurring set is a template; the
	// rows generated from it carry its ID in TemplateID.
	Expense struct {
		ID           string
		AccountID    string
		Description  string
		Amount       Money
		Date         Date // zero when missing or unparseable
		Status       ExpenseStatus
		IsRecurring  bool
		Frequency    Frequency // meaningful only when IsRecurring
		HasEndDate   bool
		EndDate      Date
		ChildID      string // empty means general/shared
		SplitEqually bool
		TemplateID   string
		DeletedAt    Date
	}

	Coupon struct {
		ID                      string
		Code                    string
		DiscountType            DiscountType
		DiscountValue           Money
		ApplicablePlans         []string      // empty means every plan
		ApplicableBillingPeriod BillingPeriod // empty means both periods
		MaxRedemptions          *int
		CurrentRedemptions      int
		ValidFrom               Date
		ValidUntil              Date
		IsActive                bool
	}

	PricingPlan struct {
		Slug         string
		Name         string
		MonthlyPrice Money
		YearlyPrice  Money
		MaxMembers   int
	}
)

var (
	ErrInvalidDay           = errors.New("invalid day")
	ErrInvalidMonth         = errors.New("invalid month")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmptyDescription     = errors.New("empty description")
	ErrInvalidStatus        = errors.New("invalid expense status")
	ErrInvalidFrequency     = errors.New("invalid frequency")
	ErrInvalidDiscountType  = errors.New("invalid discount type")
	ErrInvalidCycleType     = errors.New("invalid billing cycle type")
	ErrInvalidBillingPeriod = errors.New("invalid billing period")
	ErrMissingEndDate       = errors.New("end date required when has_end_date is set")
	ErrEndBeforeStart       = errors.New("end date must not be before the expense date")
	ErrEmptySlug            = errors.New("empty plan slug")
	ErrEmptyCode            = errors.New("empty coupon code")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD. Unparseable input yields the zero Date and an error.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// IsDeleted reports whether the row carries a deletion mark.
func (e Expense) IsDeleted() bool {
	return !e.DeletedAt.IsZero()
}

// IsMaterialized reports whether the row was generated from a template that still exists.
func (e Expense) IsMaterialized() bool {
	return !e.IsRecurring && e.TemplateID != ""
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !e.Status.Valid() {
		return ErrInvalidStatus
	}
	if e.IsRecurring && !e.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if e.HasEndDate {
		if e.EndDate.IsZero() {
			return ErrMissingEndDate
		}
		if e.EndDate.Before(e.Date.Time) {
			return ErrEndBeforeStart
		}
	}
	return nil
}

func (a Account) Validate() error {
	if !a.BillingCycleType.Valid() {
		return ErrInvalidCycleType
	}
	if a.BillingCycleStartDay < 1 || a.BillingCycleStartDay > 31 {
		return ErrInvalidDay
	}
	if a.BillingCycleEndDay != nil {
		if a.BillingCycleType != CycleCustom {
			return errors.New("billing cycle end day is only allowed for custom cycles")
		}
		if *a.BillingCycleEndDay < 1 || *a.BillingCycleEndDay > 31 {
			return ErrInvalidDay
		}
	}
	if !a.BillingPeriod.Valid() {
		return ErrInvalidBillingPeriod
	}
	return nil
}

func (c Coupon) Validate() error {
	if strings.TrimSpace(c.Code) == "" {
		return ErrEmptyCode
	}
	if !c.DiscountType.Valid() {
		return ErrInvalidDiscountType
	}
	if c.DiscountValue.IsNegative() {
		return ErrInvalidAmount
	}
	if c.DiscountType == DiscountPercentage && c.DiscountValue.GreaterThan(MoneyFromInt(100)) {
		return errors.New("percentage discount must be between 0 and 100")
	}
	if c.ApplicableBillingPeriod != "" && !c.ApplicableBillingPeriod.Valid() {
		return ErrInvalidBillingPeriod
	}
	if c.MaxRedemptions != nil && *c.MaxRedemptions < 0 {
		return errors.New("max redemptions cannot be negative")
	}
	return nil
}

// AppliesToPlan reports whether the coupon may be used with the plan.
func (c Coupon) AppliesToPlan(slug string) bool {
	if len(c.ApplicablePlans) == 0 {
		return true
	}
	for _, p := range c.ApplicablePlans {
		if p == slug {
			return true
		}
	}
	return false
}

// AppliesToPeriod reports whether the coupon may be used with the billing period.
func (c Coupon) AppliesToPeriod(p BillingPeriod) bool {
	return c.ApplicableBillingPeriod == "" || c.ApplicableBillingPeriod == p
}

// Exhausted reports whether the redemption limit has been reached.
func (c Coupon) Exhausted() bool {
	return c.MaxRedemptions != nil && c.CurrentRedemptions >= *c.MaxRedemptions
}

// InWindow reports whether at falls inside the coupon validity window. The
// last day is inclusive; zero bounds are open.
func (c Coupon) InWindow(at time.Time) bool {
	if !c.ValidFrom.IsZero() && at.Before(c.ValidFrom.Time) {
		return false
	}
	if !c.ValidUntil.IsZero() && !at.Before(c.ValidUntil.AddDate(0, 0, 1)) {
		return false
	}
	return true
}

func (p PricingPlan) Validate() error {
	if strings.TrimSpace(p.Slug) == "" {
		return ErrEmptySlug
	}
	if p.MonthlyPrice.IsNegative() || p.YearlyPrice.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}
