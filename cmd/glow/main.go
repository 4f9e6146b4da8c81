package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"glow/internal/amqp"
	"glow/internal/cli"
	apphttp "glow/internal/http"
	"glow/internal/ledger"
	"glow/internal/log"
	"glow/internal/metrics"
	"glow/internal/middleware/ratelimit"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		log.Default().Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentApp)
	m := metrics.New()
	ctx := context.Background()

	var opts []ledger.Option
	var publisher *amqp.Client
	if cfg.AMQPURL != "" {
		publisher, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			// the ledger works without the mirror; the worker reconciles later
			logger.Warn("AMQP unavailable, mirror notifications disabled", log.FieldError, err)
		} else {
			opts = append(opts, ledger.WithPublisher(publisher))
			logger.Info("Publishing ledger events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	l, err := cli.OpenLedger(ctx, cfg, logger, m, opts...)
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err)
		os.Exit(1)
	}

	rl := ratelimit.DefaultConfig()
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:            l.Store,
		Presenter:         l.Presenter,
		PDFCurrencySymbol: cfg.PDFCurrencySymbol,
		ChartMonths:       cfg.ChartMonths,
		RateLimit:         rl,
		Metrics:           m,
		Logger:            logger,
		Ready:             l.ReadyCheck,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if publisher != nil {
			_ = publisher.Close()
		}
		if err := l.Close(); err != nil {
			logger.Error("Backend close error", log.FieldError, err)
		}
	})

	logger.Info("Starting glow server",
		"port", cfg.Port,
		log.FieldBackend, l.Backend.Type,
		log.FieldLedger, cfg.LedgerKey,
		log.FieldRecords, l.Store.Len())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-shutdownCtx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}
