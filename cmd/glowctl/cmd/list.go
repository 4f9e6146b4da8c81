package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"glow/internal/cli"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every transaction, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLedger(cmd.Context(), func(l *cli.Ledger) error {
				all := l.Store.All()
				if opts.json {
					rows := make([]map[string]any, len(all))
					for i, tx := range all {
						rows[i] = map[string]any{
							"id":       tx.ID,
							"title":    tx.Title,
							"amount":   tx.Amount.String(),
							"kind":     tx.Kind,
							"date":     tx.Date.String(),
							"category": tx.Category,
							"damaged":  tx.Damaged(),
						}
					}
					return printJSON(cmd.OutOrStdout(), rows)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tDATE\tKIND\tAMOUNT\tCATEGORY\tTITLE")
				for _, tx := range all {
					amount := l.Presenter.SignedAmount(tx)
					if tx.Damaged() {
						amount = "(unreadable)"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", tx.ID, tx.Date, tx.Kind, amount, tx.Category, tx.Title)
				}
				return tw.Flush()
			})
		},
	}
}
