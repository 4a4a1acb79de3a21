package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"famledger/internal/cache"
	"famledger/internal/cli"
	apphttp "famledger/internal/http"
	"famledger/internal/ledger"
	"famledger/internal/log"
	"famledger/internal/services"
)

func main() {
	cfg, logger := cli.Setup(log.ComponentApp)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	b := cli.OpenBackend(ctx, logger, cfg)
	defer b.Close()

	summarizer := ledger.NewSummarizer(cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	caches := cache.NewManager(logger.WithComponent(log.ComponentCache).Slog())
	caches.Register(summarizer.Cache())
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	ledgerService := services.NewLedgerService(b.Repo, summarizer)
	validator := services.NewStoreCouponValidator(b.Repo)

	handler := apphttp.NewHandler(apphttp.Deps{
		Ledger:    ledgerService,
		Checkout:  services.NewPricingService(b.Repo, validator, b.Events),
		Templates: services.NewRecurringService(b.Repo, b.Events),
		Exporter:  services.NewExportService(ledgerService, b.Reports),
		DB:        b.Repo,
		Logger:    logger,
	})
	srv := apphttp.NewServer(":"+cfg.Port, handler, apphttp.RouterOptions{
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMinute,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	}()

	logger.Info("Starting famledger API", "port", cfg.Port, "reports", b.ReportTarget)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
