package backend

import (
	"context"
	"fmt"

	"famledger/internal/amqp"
	"famledger/internal/config"
	"famledger/internal/log"
	"famledger/internal/services"
	gsheet "famledger/internal/sheets/google"
	"famledger/internal/sheets/memory"
	"famledger/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentApp)}
}

// Open opens the SQLite repository, connects to the broker when one is
// configured and picks the report writer. A broker that cannot be reached
// is logged and replaced by a discarding publisher; a misconfigured
// spreadsheet is an error.
func (f *DefaultFactory) Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	b := &Backend{}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, f.logger.WithComponent(log.ComponentStorage).Slog())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	b.Repo = repo
	b.cleanups = append(b.cleanups, repo.Close)

	b.Events = services.NopPublisher{}
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, f.logger.WithComponent(log.ComponentAMQP).Slog())
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			b.AMQP, b.Events = client, client
			b.cleanups = append(b.cleanups, client.Close)
			f.logger.InfoContext(ctx, "Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		f.logger.InfoContext(ctx, "AMQP disabled, events will not be published")
	}

	if cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		b.Reports, b.ReportTarget = client, SheetsReports
		f.logger.InfoContext(ctx, "Initialized Google Sheets export", log.FieldSpreadsheet, cfg.GoogleSpreadsheetID)
	} else {
		b.Reports, b.ReportTarget = memory.New(), MemoryReports
		f.logger.InfoContext(ctx, "Google Sheets disabled, cycle reports are kept in memory")
	}

	f.logger.InfoContext(ctx, "Initialized backend",
		"db_path", cfg.SQLiteDBPath,
		"amqp_enabled", b.AMQP != nil,
		"reports", b.ReportTarget)
	return b, nil
}
