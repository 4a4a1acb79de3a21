// Package storage persists accounts, expenses, plans and coupons in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"famledger/internal/core"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrRedemptionLimit = errors.New("coupon redemption limit reached")
	ErrAlreadyRedeemed = errors.New("coupon already redeemed by this account")
	ErrDuplicate       = errors.New("duplicate record")
)

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it to the latest schema.
func NewSQLiteRepository(dbPath string, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("SQLite repository ready", "component", "storage", "path", dbPath, "schema_version", version)
	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// withTx runs fn inside a transaction, committing only when fn succeeds.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// GetAccount returns the billing configuration of an account.
func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (core.Account, error) {
	var (
		a      core.Account
		endDay sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, billing_cycle_type, billing_cycle_start_day, billing_cycle_end_day, plan_slug, billing_period
		FROM accounts WHERE id = ?`, id,
	).Scan(&a.ID, &a.BillingCycleType, &a.BillingCycleStartDay, &endDay, &a.PlanSlug, &a.BillingPeriod)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	if endDay.Valid {
		d := int(endDay.Int64)
		a.BillingCycleEndDay = &d
	}
	return a, nil
}

// SaveAccount inserts or replaces an account's billing configuration.
func (r *SQLiteRepository) SaveAccount(ctx context.Context, a core.Account) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("validate account: %w", err)
	}
	var endDay any
	if a.BillingCycleEndDay != nil {
		endDay = *a.BillingCycleEndDay
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, billing_cycle_type, billing_cycle_start_day, billing_cycle_end_day, plan_slug, billing_period)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			billing_cycle_type = excluded.billing_cycle_type,
			billing_cycle_start_day = excluded.billing_cycle_start_day,
			billing_cycle_end_day = excluded.billing_cycle_end_day,
			plan_slug = excluded.plan_slug,
			billing_period = excluded.billing_period`,
		a.ID, a.BillingCycleType, a.BillingCycleStartDay, endDay, a.PlanSlug, a.BillingPeriod,
	)
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

// ListChildren returns the children of an account ordered by name.
func (r *SQLiteRepository) ListChildren(ctx context.Context, accountID string) ([]core.Child, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, name FROM children WHERE account_id = ? ORDER BY name, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var out []core.Child
	for rows.Next() {
		var c core.Child
		if err := rows.Scan(&c.ID, &c.AccountID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveChild(ctx context.Context, c core.Child) error {
	if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.Name) == "" {
		return errors.New("child id and name are required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO children (id, account_id, name) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		c.ID, c.AccountID, c.Name)
	if err != nil {
		return fmt.Errorf("save child: %w", err)
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.Format(dateLayout)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// parseNullDate tolerates garbage: an unparseable stored date reads back as
// the zero date, which the ledger treats as missing.
func parseNullDate(s sql.NullString) core.Date {
	if !s.Valid || s.String == "" {
		return core.Date{}
	}
	d, err := core.ParseDate(s.String)
	if err != nil {
		return core.Date{}
	}
	return d
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
