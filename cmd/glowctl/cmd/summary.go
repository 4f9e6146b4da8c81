package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"glow/internal/cli"
)

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print income, expense and money left for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := referenceTime(date, opts.now())
			if err != nil {
				return err
			}
			return opts.withLedger(cmd.Context(), func(l *cli.Ledger) error {
				s := l.Presenter.Summary(cmd.Context(), now)
				if opts.json {
					return printJSON(cmd.OutOrStdout(), s)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n  Income:     %s\n  Expense:    %s\n  Money Left: %s\n",
					s.Label, s.Income, s.Expense, s.Balance)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "any day of the month to summarize, YYYY-MM-DD (default today)")
	return cmd
}
