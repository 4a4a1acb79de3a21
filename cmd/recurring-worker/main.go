package main

import (
	"context"
	"errors"
	"os"
	"time"

	"famledger/internal/cli"
	"famledger/internal/log"
	"famledger/internal/services"
)

func main() {
	cfg, logger := cli.Setup(log.ComponentRecurring)
	logger.Info("Starting recurring-worker")

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	b := cli.OpenBackend(ctx, logger, cfg)
	defer b.Close()

	processor := services.NewRecurringService(b.Repo, b.Events)

	logger.Info("Recurring materializer configured",
		"interval", cfg.RecurringInterval,
		"sqlite_db", cfg.SQLiteDBPath,
		"amqp_enabled", b.AMQP != nil)

	err := processor.Run(ctx, cfg.RecurringInterval, func() time.Time { return time.Now().UTC() })
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Recurring worker stopped", log.FieldError, err)
		b.Close()
		os.Exit(1)
	}
	logger.Info("Recurring-worker shutdown complete")
}
