package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"glow/internal/cli"
	"glow/internal/core"
)

func newAddCmd(opts *rootOptions) *cobra.Command {
	var c core.Candidate

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a transaction to the ledger",
		Example: `  glowctl add --title Groceries --amount 12.50 --date 2024-06-15
  glowctl add --title Salary --amount 2500 --kind income`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.Date == "" {
				c.Date = core.DateOf(opts.now()).String()
			}
			return opts.withLedger(cmd.Context(), func(l *cli.Ledger) error {
				// unlike the server, a record that did not reach the backend is
				// lost when glowctl exits, so a durability warning is an error
				tx, err := l.Store.Add(cmd.Context(), c)
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd.OutOrStdout(), map[string]any{
						"id":       tx.ID,
						"title":    tx.Title,
						"amount":   tx.Amount.String(),
						"kind":     tx.Kind,
						"date":     tx.Date.String(),
						"category": tx.Category,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s: %s %s on %s\n",
					tx.ID, tx.Title, l.Presenter.SignedAmount(tx), tx.Date)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&c.Title, "title", "", "what the money was for (required)")
	f.StringVar(&c.Amount, "amount", "", "non-negative amount, e.g. 12.50 (required)")
	f.StringVar(&c.Kind, "kind", "expense", "income or expense")
	f.StringVar(&c.Date, "date", "", "day of the transaction, YYYY-MM-DD (default today)")
	f.StringVar(&c.Category, "category", "", "optional category")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
