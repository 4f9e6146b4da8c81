// Package export renders the summary document as a PDF.
package export

import (
	"fmt"
	"io"

	"github.com/phpdave11/gofpdf"

	"glow/internal/present"
)

// FileName is the download name of the rendered summary.
const FileName = "glow_summary.pdf"

// Layout in points on A4.
const (
	leftMargin = 40.0
	topY       = 40.0
	pageBreakY = 740.0
	lineStep   = 14.0
	fontFamily = "Helvetica"
)

// RenderPDF writes doc to w and returns the number of pages produced.
//
// The core fonts only cover code page 1252. Other runes are replaced with a
// placeholder, so callers swap symbols such as ₹ beforehand with
// present.Presenter.WithCurrency.
func RenderPDF(doc present.ExportDocument, w io.Writer) (int, error) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("glow", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(leftMargin, topY, leftMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	y := topY
	text := func(size float64, s string, advance float64) {
		pdf.SetFont(fontFamily, "", size)
		pdf.Text(leftMargin, y, tr(s))
		y += advance
	}

	text(18, doc.Title, 26)
	text(11, "Generated: "+doc.GeneratedAt, 20)

	text(13, "This Month", 18)
	text(11, "Income: "+doc.Income, 16)
	text(11, "Expense: "+doc.Expense, 16)
	text(11, "Money Left: "+doc.Left, 22)

	text(13, "Recent Transactions", 16)
	pdf.SetFont(fontFamily, "", 10)
	if doc.Empty || len(doc.Lines) == 0 {
		pdf.Text(leftMargin, y, tr(present.EmptyExportLine))
	} else {
		for _, line := range doc.Lines {
			if y > pageBreakY {
				pdf.AddPage()
				pdf.SetFont(fontFamily, "", 10)
				y = topY
			}
			pdf.Text(leftMargin, y, tr(line))
			y += lineStep
		}
	}

	pages := pdf.PageCount()
	if err := pdf.Output(w); err != nil {
		return 0, fmt.Errorf("render pdf: %w", err)
	}
	return pages, nil
}
