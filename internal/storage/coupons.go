package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"famledger/internal/core"
)

func scanPlan(s rowScanner) (core.PricingPlan, error) {
	var (
		p               core.PricingPlan
		monthly, yearly string
	)
	if err := s.Scan(&p.Slug, &p.Name, &monthly, &yearly, &p.MaxMembers); err != nil {
		return core.PricingPlan{}, err
	}
	var err error
	if p.MonthlyPrice, err = core.ParseMoney(monthly); err != nil {
		return core.PricingPlan{}, fmt.Errorf("plan %s monthly price: %w", p.Slug, err)
	}
	if p.YearlyPrice, err = core.ParseMoney(yearly); err != nil {
		return core.PricingPlan{}, fmt.Errorf("plan %s yearly price: %w", p.Slug, err)
	}
	return p, nil
}

// ListPlans returns every pricing plan ordered by monthly price.
func (r *SQLiteRepository) ListPlans(ctx context.Context) ([]core.PricingPlan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT slug, name, monthly_price, yearly_price, max_members FROM pricing_plans ORDER BY CAST(monthly_price AS REAL), slug`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []core.PricingPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetPlan(ctx context.Context, slug string) (core.PricingPlan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT slug, name, monthly_price, yearly_price, max_members FROM pricing_plans WHERE slug = ?`, slug)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PricingPlan{}, fmt.Errorf("plan %s: %w", slug, ErrNotFound)
	}
	if err != nil {
		return core.PricingPlan{}, fmt.Errorf("get plan: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) SavePlan(ctx context.Context, p core.PricingPlan) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validate plan: %w", err)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pricing_plans (slug, name, monthly_price, yearly_price, max_members) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name,
			monthly_price = excluded.monthly_price,
			yearly_price = excluded.yearly_price,
			max_members = excluded.max_members`,
		p.Slug, p.Name, p.MonthlyPrice.String(), p.YearlyPrice.String(), p.MaxMembers)
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

// GetCouponByCode looks a coupon up case-insensitively.
func (r *SQLiteRepository) GetCouponByCode(ctx context.Context, code string) (core.Coupon, error) {
	var (
		c                     core.Coupon
		value, plans, period  string
		maxRedemptions        sql.NullInt64
		validFrom, validUntil sql.NullString
		isActive              int
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, code, discount_type, discount_value, applicable_plans, applicable_billing_period,
			max_redemptions, current_redemptions, valid_from, valid_until, is_active
		FROM coupons WHERE code = ?`, strings.TrimSpace(code),
	).Scan(&c.ID, &c.Code, &c.DiscountType, &value, &plans, &period,
		&maxRedemptions, &c.CurrentRedemptions, &validFrom, &validUntil, &isActive)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Coupon{}, fmt.Errorf("coupon %q: %w", code, ErrNotFound)
	}
	if err != nil {
		return core.Coupon{}, fmt.Errorf("get coupon: %w", err)
	}

	if c.DiscountValue, err = core.ParseMoney(value); err != nil {
		return core.Coupon{}, fmt.Errorf("coupon %s discount value: %w", c.ID, err)
	}
	if plans != "" {
		c.ApplicablePlans = strings.Split(plans, ",")
	}
	c.ApplicableBillingPeriod = core.BillingPeriod(period)
	if maxRedemptions.Valid {
		n := int(maxRedemptions.Int64)
		c.MaxRedemptions = &n
	}
	c.ValidFrom = parseNullDate(validFrom)
	c.ValidUntil = parseNullDate(validUntil)
	c.IsActive = isActive != 0
	return c, nil
}

func (r *SQLiteRepository) SaveCoupon(ctx context.Context, c core.Coupon) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate coupon: %w", err)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	var maxRedemptions any
	if c.MaxRedemptions != nil {
		maxRedemptions = *c.MaxRedemptions
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO coupons (id, code, discount_type, discount_value, applicable_plans, applicable_billing_period,
			max_redemptions, current_redemptions, valid_from, valid_until, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, strings.TrimSpace(c.Code), c.DiscountType, c.DiscountValue.String(), strings.Join(c.ApplicablePlans, ","),
		string(c.ApplicableBillingPeriod), maxRedemptions, c.CurrentRedemptions,
		nullDate(c.ValidFrom), nullDate(c.ValidUntil), boolInt(c.IsActive))
	if isUniqueConstraintError(err) {
		return fmt.Errorf("coupon %q: %w", c.Code, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("save coupon: %w", err)
	}
	return nil
}

// HasRedeemed reports whether accountID already used the coupon.
func (r *SQLiteRepository) HasRedeemed(ctx context.Context, couponID, accountID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM coupon_redemptions WHERE coupon_id = ? AND account_id = ?`,
		couponID, accountID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check redemption: %w", err)
	}
	return n > 0, nil
}

// RecordRedemption consumes one use of the coupon for accountID. The counter
// is incremented with a guarded UPDATE, so concurrent confirmations can never
// push it past max_redemptions.
func (r *SQLiteRepository) RecordRedemption(ctx context.Context, couponID, accountID string, at time.Time) (string, error) {
	id := uuid.NewString()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE coupons SET current_redemptions = current_redemptions + 1
			WHERE id = ? AND is_active = 1
				AND (max_redemptions IS NULL OR current_redemptions < max_redemptions)`,
			couponID)
		if err != nil {
			return fmt.Errorf("increment redemptions: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var exists int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM coupons WHERE id = ?`, couponID).Scan(&exists); err != nil {
				return fmt.Errorf("check coupon: %w", err)
			}
			if exists == 0 {
				return fmt.Errorf("coupon %s: %w", couponID, ErrNotFound)
			}
			return fmt.Errorf("coupon %s: %w", couponID, ErrRedemptionLimit)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO coupon_redemptions (id, coupon_id, account_id, redeemed_at) VALUES (?, ?, ?, ?)`,
			id, couponID, accountID, formatTime(at))
		if isUniqueConstraintError(err) {
			return fmt.Errorf("coupon %s: %w", couponID, ErrAlreadyRedeemed)
		}
		if err != nil {
			return fmt.Errorf("insert redemption: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	r.logger.InfoContext(ctx, "Coupon redeemed",
		"component", "storage", "coupon_id", couponID, "account_id", accountID, "redemption_id", id)
	return id, nil
}
