package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"famledger/internal/backend"
	"famledger/internal/cli"
	"famledger/internal/core"
	"famledger/internal/ledger"
	"famledger/internal/log"
	"famledger/internal/services"
)

func main() {
	account := flag.String("account", "", "export one cycle report for this account and exit")
	atFlag := flag.String("at", "", "reference date (YYYY-MM-DD) for -account; defaults to today")
	flag.Parse()

	cfg, logger := cli.Setup(log.ComponentWorker)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	b := cli.OpenBackend(ctx, logger, cfg)
	defer b.Close()

	ledgerService := services.NewLedgerService(b.Repo, ledger.NewSummarizer(cfg.SummaryCacheSize, cfg.SummaryCacheTTL))
	exporter := services.NewExportService(ledgerService, b.Reports)

	if *account != "" {
		if err := exportOnce(ctx, exporter, *account, *atFlag); err != nil {
			logger.Error("Export failed", log.FieldAccountID, *account, log.FieldError, err)
			b.Close()
			os.Exit(1)
		}
		return
	}

	if b.AMQP == nil {
		logger.Error("ledger-exporter needs a reachable AMQP broker; set AMQP_URL or pass -account")
		b.Close()
		os.Exit(1)
	}
	if b.ReportTarget == backend.MemoryReports {
		logger.Warn("Google Sheets disabled, exported reports are discarded on exit")
	}

	logger.Info("Consuming ledger events", "queue", cfg.AMQPQueue, "reports", b.ReportTarget)
	if err := b.AMQP.Consume(ctx, exporter.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		b.Close()
		os.Exit(1)
	}
	logger.Info("Ledger-exporter shutdown complete")
}

func exportOnce(ctx context.Context, exporter *services.ExportService, accountID, atRaw string) error {
	at := time.Now().UTC()
	if atRaw != "" {
		d, err := core.ParseDate(atRaw)
		if err != nil {
			return fmt.Errorf("invalid -at %q: %w", atRaw, err)
		}
		at = d.Time
	}
	ref, err := exporter.Export(ctx, accountID, at)
	if err != nil {
		return err
	}
	fmt.Println(ref)
	return nil
}
