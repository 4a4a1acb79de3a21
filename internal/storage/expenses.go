package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"famledger/internal/core"
	"famledger/internal/recurring"
)

const expenseColumns = `id, account_id, description, amount, date, status, is_recurring, frequency,
	has_end_date, end_date, child_id, split_equally, template_id, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(s rowScanner) (core.Expense, error) {
	var (
		e                                   core.Expense
		amount                              string
		date, endDate, deletedAt            sql.NullString
		frequency, childID, templateID      sql.NullString
		isRecurring, hasEndDate, splitEqual int
	)
	err := s.Scan(&e.ID, &e.AccountID, &e.Description, &amount, &date, &e.Status, &isRecurring, &frequency,
		&hasEndDate, &endDate, &childID, &splitEqual, &templateID, &deletedAt)
	if err != nil {
		return core.Expense{}, err
	}

	m, err := core.ParseMoney(amount)
	if err != nil {
		// Signed amounts are rejected by ParseMoney but may exist in
		// imported data; keep them as-is.
		if err := m.UnmarshalJSON([]byte(`"` + amount + `"`)); err != nil {
			return core.Expense{}, fmt.Errorf("expense %s amount %q: %w", e.ID, amount, err)
		}
	}
	e.Amount = m
	e.Date = parseNullDate(date)
	e.IsRecurring = isRecurring != 0
	e.Frequency = core.Frequency(frequency.String)
	e.HasEndDate = hasEndDate != 0
	e.EndDate = parseNullDate(endDate)
	e.ChildID = childID.String
	e.SplitEqually = splitEqual != 0
	e.TemplateID = templateID.String
	e.DeletedAt = parseNullDate(deletedAt)
	return e, nil
}

func (r *SQLiteRepository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListExpenses returns every row of an account, templates and deleted
// templates included, in date then insertion order.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, accountID string) ([]core.Expense, error) {
	out, err := r.queryExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE account_id = ? ORDER BY date, rowid`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

// ListActiveTemplates returns the recurring templates of every account that
// have not been deleted. Expiry is left to the caller.
func (r *SQLiteRepository) ListActiveTemplates(ctx context.Context) ([]core.Expense, error) {
	out, err := r.queryExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE is_recurring = 1 AND deleted_at IS NULL ORDER BY account_id, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list active templates: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertExpense(ctx context.Context, db execer, e core.Expense) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO expenses (`+expenseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.AccountID, e.Description, e.Amount.String(), nullDate(e.Date), e.Status,
		boolInt(e.IsRecurring), nullString(string(e.Frequency)), boolInt(e.HasEndDate), nullDate(e.EndDate),
		nullString(e.ChildID), boolInt(e.SplitEqually), nullString(e.TemplateID), nullDate(e.DeletedAt),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("expense %s: %w", e.ID, ErrDuplicate)
	}
	return err
}

// CreateExpense validates and stores a new row.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("validate expense: %w", err)
	}
	if err := insertExpense(ctx, r.db, e); err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	r.logger.DebugContext(ctx, "Expense stored", "component", "storage", "expense_id", e.ID, "recurring", e.IsRecurring)
	return nil
}

// UpdateTemplate stores an edited template. Rows already generated from it
// are separate records and stay as they are.
func (r *SQLiteRepository) UpdateTemplate(ctx context.Context, tmpl core.Expense) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses SET description = ?, amount = ?, frequency = ?, child_id = ?, has_end_date = ?, end_date = ?
		WHERE id = ? AND is_recurring = 1 AND deleted_at IS NULL`,
		tmpl.Description, tmpl.Amount.String(), nullString(string(tmpl.Frequency)), nullString(tmpl.ChildID),
		boolInt(tmpl.HasEndDate), nullDate(tmpl.EndDate), tmpl.ID)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("template %s: %w", tmpl.ID, ErrNotFound)
	}
	return nil
}

// DeleteTemplate marks a template deleted and clears the back-reference on
// every row generated from it, in one transaction. Generated rows are never
// removed. It returns how many rows were unlinked.
func (r *SQLiteRepository) DeleteTemplate(ctx context.Context, templateID string, at time.Time) (int64, error) {
	var unlinked int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var isRecurring int
		var deletedAt sql.NullString
		err := tx.QueryRowContext(ctx,
			`SELECT is_recurring, deleted_at FROM expenses WHERE id = ?`, templateID,
		).Scan(&isRecurring, &deletedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("template %s: %w", templateID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load template: %w", err)
		}
		if isRecurring == 0 {
			return fmt.Errorf("expense %s: %w", templateID, recurring.ErrNotTemplate)
		}
		if deletedAt.Valid {
			return fmt.Errorf("template %s: %w", templateID, ErrNotFound)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE expenses SET deleted_at = ? WHERE id = ?`, at.UTC().Format(dateLayout), templateID); err != nil {
			return fmt.Errorf("mark template deleted: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE expenses SET template_id = NULL WHERE template_id = ?`, templateID)
		if err != nil {
			return fmt.Errorf("unlink occurrences: %w", err)
		}
		unlinked, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.InfoContext(ctx, "Recurring template deleted",
		"component", "storage", "template_id", templateID, "unlinked", unlinked)
	return unlinked, nil
}

// LastRun returns when a template last produced an occurrence. ok is false
// when it never has.
func (r *SQLiteRepository) LastRun(ctx context.Context, templateID string) (time.Time, bool, error) {
	var s string
	err := r.db.QueryRowContext(ctx,
		`SELECT last_run_at FROM recurring_runs WHERE template_id = ?`, templateID).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get last run: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse last run %q: %w", s, err)
	}
	return t, true, nil
}

// SaveOccurrence stores a generated row and advances its template's last run
// atomically, so a crash can neither lose nor duplicate an occurrence.
func (r *SQLiteRepository) SaveOccurrence(ctx context.Context, occ core.Expense, runAt time.Time) error {
	if occ.TemplateID == "" {
		return errors.New("occurrence without template")
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertExpense(ctx, tx, occ); err != nil {
			return fmt.Errorf("insert occurrence: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO recurring_runs (template_id, last_run_at) VALUES (?, ?)
			ON CONFLICT(template_id) DO UPDATE SET last_run_at = excluded.last_run_at`,
			occ.TemplateID, formatTime(runAt))
		if err != nil {
			return fmt.Errorf("record last run: %w", err)
		}
		return nil
	})
}
