package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"famledger/internal/amqp"
	"famledger/internal/sheets"
)

// ExportService writes billing-cycle reports to a spreadsheet.
type ExportService struct {
	ledger *LedgerService
	writer sheets.ReportWriter
}

func NewExportService(ledger *LedgerService, writer sheets.ReportWriter) *ExportService {
	return &ExportService{ledger: ledger, writer: writer}
}

// Export writes the report of the cycle containing at and returns the row
// reference.
func (s *ExportService) Export(ctx context.Context, accountID string, at time.Time) (string, error) {
	summary, err := s.ledger.Summary(ctx, accountID, at)
	if err != nil {
		return "", fmt.Errorf("build summary: %w", err)
	}
	ref, err := s.writer.AppendCycleReport(ctx, summary.Report())
	if err != nil {
		return "", fmt.Errorf("append report: %w", err)
	}
	return ref, nil
}

// HandleEvent re-exports the cycle an event touched. Coupon redemptions do
// not change the ledger and are only logged.
func (s *ExportService) HandleEvent(ctx context.Context, event amqp.Event) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"event_id", event.ID,
		"routing_key", event.Type,
		"account_id", event.AccountID)

	at := event.OccurredAt
	switch event.Type {
	case amqp.EventOccurrenceMaterialized:
		var p amqp.OccurrenceMaterialized
		if err := event.Decode(&p); err != nil {
			return err
		}
		if d, err := time.Parse("2006-01-02", p.Date); err == nil {
			at = d
		}
	case amqp.EventTemplateDeleted:
	default:
		return nil
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	ref, err := s.Export(ctx, event.AccountID, at)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Successfully exported cycle report",
		"event_id", event.ID,
		"account_id", event.AccountID,
		"row_ref", ref)
	return nil
}
