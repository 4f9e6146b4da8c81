package main

import (
	"context"
	"os"
	"time"

	"glow/internal/amqp"
	"glow/internal/cache"
	"glow/internal/cli"
	"glow/internal/log"
	"glow/internal/metrics"
	gsheet "glow/internal/sheets/google"
	"glow/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err == nil {
		err = cfg.ValidateMirror()
	}
	if err != nil {
		log.Default().Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentWorker)
	logger.Info("Starting glow-worker")
	m := metrics.New()

	l, err := cli.OpenLedger(context.Background(), cfg, logger, m)
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err)
		os.Exit(1)
	}
	defer l.Close()

	sheet, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer consumer.Close()

	mirror := worker.NewMirror(l.Store, sheet, logger, m)
	caches := cache.NewManager(logger)
	caches.Register(mirror.Known())
	caches.StartCleanup(10 * time.Minute)
	defer caches.Stop()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Mirroring ledger",
		log.FieldLedger, cfg.LedgerKey,
		"queue", cfg.AMQPQueue,
		"reconcile_interval", cfg.ReconcileInterval.String())
	if err := mirror.Run(ctx, consumer, cfg.ReconcileInterval); err != nil {
		logger.Error("Mirror stopped", log.FieldError, err)
		os.Exit(1)
	}
	<-done
	logger.Info("Worker shutdown complete")
}
