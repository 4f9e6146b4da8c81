// Package cli holds the start-up steps shared by cmd/glow, cmd/glow-worker
// and cmd/glowctl.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"glow/internal/aggregate"
	"glow/internal/backend"
	"glow/internal/config"
	"glow/internal/core"
	"glow/internal/ledger"
	"glow/internal/log"
	"glow/internal/metrics"
	"glow/internal/present"
)

// SetupLogger builds the process logger at the given level and installs it
// as the slog default.
func SetupLogger(level, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: component,
		Output:    os.Stdout,
	})
	slog.SetDefault(logger.Logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig reads the environment and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Ledger bundles a loaded ledger with the read-side components built on it.
type Ledger struct {
	Store     *ledger.Store
	Engine    *aggregate.Engine
	Presenter *present.Presenter
	Backend   *backend.Result
	Report    ledger.LoadReport
}

// OpenLedger opens the configured snapshot backend and loads the ledger
// from it. A degraded load is logged and still returns a usable ledger.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *log.Logger, m *metrics.Metrics, opts ...ledger.Option) (*Ledger, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.Open(ctx, bcfg, logger)
	if err != nil {
		return nil, err
	}

	opts = append([]ledger.Option{ledger.WithLogger(logger), ledger.WithMetrics(m)}, opts...)
	store := ledger.New(res.Snapshots, cfg.LedgerKey, opts...)
	report := store.Load(ctx)
	if report.Degraded {
		logger.ErrorContext(ctx, "Ledger loaded empty, snapshot unreadable",
			log.FieldLedger, cfg.LedgerKey, log.FieldBackend, res.Type, log.FieldError, report.Err)
	} else {
		logger.InfoContext(ctx, "Ledger loaded",
			log.FieldLedger, cfg.LedgerKey,
			log.FieldBackend, res.Type,
			log.FieldRecords, report.Records,
			"dropped", report.Dropped,
			"damaged", report.Damaged)
	}

	engine := aggregate.New(store, logger, m)
	presenter := present.New(store, engine, present.Options{
		CurrencySymbol: cfg.CurrencySymbol,
		RecentLimit:    cfg.RecentLimit,
		ExportLimit:    cfg.ExportLimit,
	})
	return &Ledger{Store: store, Engine: engine, Presenter: presenter, Backend: res, Report: report}, nil
}

// ReadyCheck reports whether the snapshot backend can be read. A ledger
// that was never written counts as ready. A ledger whose initial load
// could not read the snapshot is reloaded here and stays not ready until
// that succeeds.
func (l *Ledger) ReadyCheck(ctx context.Context) error {
	if err := l.Store.Recover(ctx); err != nil {
		return err
	}
	_, err := l.Backend.Snapshots.Read(ctx, l.Store.Key())
	if err == nil || errors.Is(err, core.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("snapshot backend %s: %w", l.Backend.Type, err)
}

func (l *Ledger) Close() error {
	return l.Backend.Close()
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. After
// the signal, cleanup runs with a context bounded by timeout, and done is
// closed when it returns.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}
