// Package cmd provides the glowctl commands, which read and append to the
// configured ledger directly, without going through the HTTP service.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"glow/internal/cli"
	"glow/internal/config"
	"glow/internal/core"
	"glow/internal/log"
)

type rootOptions struct {
	envFile string
	debug   bool
	json    bool

	cfg    *config.Config
	logger *log.Logger
	now    func() time.Time
}

// NewRootCmd builds the command tree. Each call returns an independent tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{now: time.Now}

	root := &cobra.Command{
		Use:   "glowctl",
		Short: "Record and report on the glow ledger",
		Long: `glowctl works directly on the ledger snapshot configured through the
environment (DATA_BACKEND, DATA_DIR, SQLITE_DB_PATH, LEDGER_KEY).

Example:
  glowctl add --title Salary --amount 100 --kind income --date 2024-06-01
  glowctl summary
  glowctl export --pdf glow_summary.pdf`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env", "", "dotenv file to load (default .env when present)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print JSON instead of text")

	root.AddCommand(
		newAddCmd(opts),
		newListCmd(opts),
		newRecentCmd(opts),
		newSummaryCmd(opts),
		newChartCmd(opts),
		newExportCmd(opts),
	)
	return root
}

// Execute runs glowctl with the process arguments.
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			return fmt.Errorf("load %s: %w", o.envFile, err)
		}
	} else {
		cli.LoadEnvFile()
	}

	level := "warn"
	if o.debug {
		level = "debug"
	}
	o.logger = log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: log.ComponentCLI,
		Output:    cmd.ErrOrStderr(),
	})

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	o.cfg = cfg
	return nil
}

// withLedger opens the ledger, runs fn and releases the backend.
func (o *rootOptions) withLedger(ctx context.Context, fn func(*cli.Ledger) error) error {
	l, err := cli.OpenLedger(ctx, o.cfg, o.logger, nil)
	if err != nil {
		return err
	}
	defer l.Close()

	if l.Report.Degraded {
		return fmt.Errorf("ledger %s is unreadable: %w", o.cfg.LedgerKey, l.Report.Err)
	}
	return fn(l)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func referenceTime(date string, now time.Time) (time.Time, error) {
	if date == "" {
		return now, nil
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return time.Time{}, fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
	}
	return d.Time, nil
}
