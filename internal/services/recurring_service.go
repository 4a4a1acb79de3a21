package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"famledger/internal/amqp"
	"famledger/internal/core"
	"famledger/internal/recurring"
)

// TemplateStore is the recurring-template side of the repository.
type TemplateStore interface {
	ListActiveTemplates(ctx context.Context) ([]core.Expense, error)
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	LastRun(ctx context.Context, templateID string) (time.Time, bool, error)
	SaveOccurrence(ctx context.Context, occ core.Expense, runAt time.Time) error
	UpdateTemplate(ctx context.Context, tmpl core.Expense) error
	DeleteTemplate(ctx context.Context, templateID string, at time.Time) (int64, error)
}

// RecurringService materializes due templates and manages their lifecycle.
// It is the MaterializationService the ledger engine relies on.
type RecurringService struct {
	store  TemplateStore
	events EventPublisher
	newID  func() string
}

var _ recurring.MaterializationService = (*RecurringService)(nil)

func NewRecurringService(store TemplateStore, events EventPublisher) *RecurringService {
	if events == nil {
		events = NopPublisher{}
	}
	return &RecurringService{
		store:  store,
		events: events,
		newID:  uuid.NewString,
	}
}

// GenerateDueOccurrences creates one row for every active template that is
// due at asOf and returns the created rows. A template that fails is logged
// and skipped; the failures are returned joined after the others ran.
func (s *RecurringService) GenerateDueOccurrences(ctx context.Context, asOf time.Time) ([]core.Expense, error) {
	if s.store == nil {
		return nil, fmt.Errorf("recurring service not properly initialized")
	}

	templates, err := s.store.ListActiveTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active templates: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring templates",
		"total_active", len(templates),
		"processing_date", asOf.Format("2006-01-02"))

	var (
		created []core.Expense
		errs    []error
	)
	for _, tmpl := range templates {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		occ, ok, err := s.materialize(ctx, tmpl, asOf)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to materialize template",
				"template_id", tmpl.ID,
				"account_id", tmpl.AccountID,
				"error", err)
			errs = append(errs, fmt.Errorf("template %s: %w", tmpl.ID, err))
			continue
		}
		if !ok {
			continue
		}
		created = append(created, occ)
	}

	slog.InfoContext(ctx, "Recurring templates processed",
		"created", len(created),
		"failed", len(errs),
		"processing_date", asOf.Format("2006-01-02"))

	return created, errors.Join(errs...)
}

func (s *RecurringService) materialize(ctx context.Context, tmpl core.Expense, asOf time.Time) (core.Expense, bool, error) {
	lastRun, _, err := s.store.LastRun(ctx, tmpl.ID)
	if err != nil {
		return core.Expense{}, false, err
	}
	due, err := recurring.IsDue(tmpl, lastRun, asOf)
	if err != nil || !due {
		return core.Expense{}, false, err
	}

	occ := recurring.Occurrence(tmpl, s.newID(), asOf)
	if err := s.store.SaveOccurrence(ctx, occ, asOf); err != nil {
		return core.Expense{}, false, fmt.Errorf("save occurrence: %w", err)
	}

	slog.InfoContext(ctx, "Created occurrence from recurring template",
		"template_id", tmpl.ID,
		"expense_id", occ.ID,
		"account_id", occ.AccountID,
		"amount", occ.Amount.String(),
		"frequency", string(tmpl.Frequency))

	publish(ctx, s.events, amqp.EventOccurrenceMaterialized, occ.AccountID, amqp.OccurrenceMaterialized{
		OccurrenceID: occ.ID,
		TemplateID:   tmpl.ID,
		Amount:       occ.Amount.String(),
		Date:         occ.Date.String(),
		ChildID:      occ.ChildID,
	})
	return occ, true, nil
}

// EditTemplate applies edit to a template. Rows it already generated keep
// their values.
func (s *RecurringService) EditTemplate(ctx context.Context, templateID string, edit recurring.TemplateEdit) (core.Expense, error) {
	tmpl, err := s.store.GetExpense(ctx, templateID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("load template: %w", err)
	}
	updated, err := recurring.ApplyEdit(tmpl, edit)
	if err != nil {
		return core.Expense{}, err
	}
	if err := s.store.UpdateTemplate(ctx, updated); err != nil {
		return core.Expense{}, err
	}
	slog.InfoContext(ctx, "Recurring template updated", "template_id", templateID, "account_id", updated.AccountID)
	return updated, nil
}

// DeleteTemplate deletes a template and unlinks the rows it generated. The
// rows themselves stay in the ledger. It returns how many were unlinked.
func (s *RecurringService) DeleteTemplate(ctx context.Context, templateID string, at time.Time) (int64, error) {
	tmpl, err := s.store.GetExpense(ctx, templateID)
	if err != nil {
		return 0, fmt.Errorf("load template: %w", err)
	}
	unlinked, err := s.store.DeleteTemplate(ctx, templateID, at)
	if err != nil {
		return 0, err
	}

	publish(ctx, s.events, amqp.EventTemplateDeleted, tmpl.AccountID, amqp.TemplateDeleted{
		TemplateID: templateID,
		Unlinked:   unlinked,
	})
	return unlinked, nil
}

// Run materializes due templates every interval until ctx is done. The first
// pass runs immediately.
func (s *RecurringService) Run(ctx context.Context, interval time.Duration, now func() time.Time) error {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.GenerateDueOccurrences(ctx, now()); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "Recurring pass finished with errors", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
