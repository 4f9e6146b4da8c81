package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"glow/internal/cli"
	"glow/internal/export"
	"glow/internal/present"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		limit   int
		pdfPath string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the monthly summary export, or write it as a PDF",
		Example: `  glowctl export
  glowctl export --pdf ` + export.FileName,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLedger(cmd.Context(), func(l *cli.Ledger) error {
				now := opts.now()
				if pdfPath != "" {
					doc := l.Presenter.WithCurrency(opts.cfg.PDFCurrencySymbol).ExportSummary(cmd.Context(), now, limit)
					return writePDF(cmd, doc, pdfPath)
				}

				doc := l.Presenter.ExportSummary(cmd.Context(), now, limit)
				if opts.json {
					return printJSON(cmd.OutOrStdout(), doc)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s\nGenerated: %s\n\nThis Month (%s)\n", doc.Title, doc.GeneratedAt, doc.Month)
				fmt.Fprintf(out, "Income: %s\nExpense: %s\nMoney Left: %s\n\nRecent Transactions\n", doc.Income, doc.Expense, doc.Left)
				for _, line := range doc.Lines {
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of recent records (default EXPORT_LIMIT)")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "write a PDF to this path instead of printing")
	return cmd
}

func writePDF(cmd *cobra.Command, doc present.ExportDocument, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	pages, err := export.RenderPDF(doc, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d page(s))\n", path, pages)
	return nil
}
