package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"glow/internal/cli"
)

// emptyRecent matches the empty state of the recent list in the web UI.
const emptyRecent = "No transactions yet. Add your first one!"

func newRecentCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Print the most recent transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLedger(cmd.Context(), func(l *cli.Ledger) error {
				rows := l.Presenter.RecentRows(limit)
				if opts.json {
					return printJSON(cmd.OutOrStdout(), rows)
				}
				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(out, emptyRecent)
					return nil
				}
				for _, r := range rows {
					fmt.Fprintf(out, "%s\n  %s  %s\n", r.Title, r.Meta, r.Amount)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of records (default RECENT_LIMIT)")
	return cmd
}
