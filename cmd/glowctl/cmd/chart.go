package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"glow/internal/cli"
)

func newChartCmd(opts *rootOptions) *cobra.Command {
	var (
		date   string
		months int
	)

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Print income and expense totals for the trailing months",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := referenceTime(date, opts.now())
			if err != nil {
				return err
			}
			if months <= 0 {
				months = opts.cfg.ChartMonths
			}
			return opts.withLedger(cmd.Context(), func(l *cli.Ledger) error {
				chart := l.Presenter.ChartSeries(cmd.Context(), now, months)
				if opts.json {
					return printJSON(cmd.OutOrStdout(), chart)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
				fmt.Fprintln(tw, "MONTH\tINCOME\tEXPENSE\t")
				for i, label := range chart.Labels {
					fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t\n", label, chart.Datasets[0].Data[i], chart.Datasets[1].Data[i])
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "a day in the last month of the window, YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&months, "months", 0, "window length (default CHART_MONTHS)")
	return cmd
}
