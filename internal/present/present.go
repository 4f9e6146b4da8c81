// Package present turns ledger records and aggregates into the shapes the
// three sinks consume: the recent list, the bar chart and the exported
// summary document.
package present

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"glow/internal/aggregate"
	"glow/internal/core"
)

const (
	DefaultCurrencySymbol = "₹"
	DefaultRecentLimit    = 8
	DefaultExportLimit    = 12

	ExportTitle       = "Glow: Expense Summary"
	EmptyExportLine   = "No transactions recorded"
	noCategory        = "—"
	generatedAtLayout = "2006-01-02 15:04:05"
)

type Options struct {
	CurrencySymbol string
	RecentLimit    int
	ExportLimit    int
}

type Presenter struct {
	source      aggregate.Source
	engine      *aggregate.Engine
	currency    string
	recentLimit int
	exportLimit int
}

func New(source aggregate.Source, engine *aggregate.Engine, opts Options) *Presenter {
	p := &Presenter{
		source:      source,
		engine:      engine,
		currency:    opts.CurrencySymbol,
		recentLimit: opts.RecentLimit,
		exportLimit: opts.ExportLimit,
	}
	if p.currency == "" {
		p.currency = DefaultCurrencySymbol
	}
	if p.recentLimit <= 0 {
		p.recentLimit = DefaultRecentLimit
	}
	if p.exportLimit <= 0 {
		p.exportLimit = DefaultExportLimit
	}
	return p
}

// WithCurrency returns a copy of p that renders amounts with symbol.
func (p *Presenter) WithCurrency(symbol string) *Presenter {
	cp := *p
	if symbol != "" {
		cp.currency = symbol
	}
	return &cp
}

// RecentRecords returns the last limit records, most recent first. A
// non-positive limit uses the configured default.
func (p *Presenter) RecentRecords(limit int) []core.Transaction {
	if limit <= 0 {
		limit = p.recentLimit
	}
	all := p.source.All()
	if limit > len(all) {
		limit = len(all)
	}
	out := make([]core.Transaction, 0, limit)
	for i := len(all) - 1; i >= len(all)-limit; i-- {
		out = append(out, all[i])
	}
	return out
}

// Row is one entry of the recent list.
type Row struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Meta     string `json:"meta"`
	Amount   string `json:"amount"`
	Kind     string `json:"kind"`
	Date     string `json:"date"`
	Category string `json:"category"`
}

func (p *Presenter) RecentRows(limit int) []Row {
	records := p.RecentRecords(limit)
	rows := make([]Row, 0, len(records))
	for _, tx := range records {
		category := tx.Category
		if category == "" {
			category = noCategory
		}
		rows = append(rows, Row{
			ID:       tx.ID,
			Title:    tx.Title,
			Meta:     fmt.Sprintf("%s • %s • %s", tx.Kind, category, tx.Date),
			Amount:   p.SignedAmount(tx),
			Kind:     string(tx.Kind),
			Date:     tx.Date.String(),
			Category: tx.Category,
		})
	}
	return rows
}

// FormatCurrency renders m with the currency symbol, thousands grouping
// and two decimals. A negative amount gets a leading minus: -₹40.00.
func (p *Presenter) FormatCurrency(m core.Money) string {
	sign := ""
	if m.IsNegative() {
		sign = "-"
	}
	abs := m.Abs()
	return fmt.Sprintf("%s%s%s.%02d", sign, p.currency, humanize.Comma(abs.Cents/100), abs.Cents%100)
}

// SignedAmount prefixes the formatted amount with the sign of its kind.
func (p *Presenter) SignedAmount(tx core.Transaction) string {
	return tx.Kind.Sign() + p.FormatCurrency(tx.Amount)
}

// MonthLabel renders a month key as "Jun 2024".
func MonthLabel(k core.MonthKey) string {
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
}

// SummaryView is the current month summary, formatted and raw.
type SummaryView struct {
	Month        string `json:"month"`
	Label        string `json:"label"`
	Income       string `json:"income"`
	Expense      string `json:"expense"`
	Balance      string `json:"balance"`
	IncomeCents  int64  `json:"income_cents"`
	ExpenseCents int64  `json:"expense_cents"`
	BalanceCents int64  `json:"balance_cents"`
}

func (p *Presenter) Summary(ctx context.Context, now time.Time) SummaryView {
	s := p.engine.CurrentMonthSummary(ctx, now)
	return SummaryView{
		Month:        s.Month.String(),
		Label:        MonthLabel(s.Month),
		Income:       p.FormatCurrency(s.Income),
		Expense:      p.FormatCurrency(s.Expense),
		Balance:      p.FormatCurrency(s.Balance()),
		IncomeCents:  s.Income.Cents,
		ExpenseCents: s.Expense.Cents,
		BalanceCents: s.Balance().Cents,
	}
}

// Chart is a grouped bar chart payload: one label per month and one value
// per month in each dataset.
type Chart struct {
	Currency string    `json:"currency"`
	Labels   []string  `json:"labels"`
	Months   []string  `json:"months"`
	Datasets []Dataset `json:"datasets"`
}

type Dataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

func (p *Presenter) ChartSeries(ctx context.Context, now time.Time, n int) Chart {
	series := p.engine.TrailingMonthsSeries(ctx, now, n)
	chart := Chart{
		Currency: p.currency,
		Labels:   make([]string, len(series)),
		Months:   make([]string, len(series)),
	}
	income := Dataset{Label: "Income", Data: make([]float64, len(series))}
	expense := Dataset{Label: "Expense", Data: make([]float64, len(series))}
	for i, b := range series {
		chart.Labels[i] = MonthLabel(b.Month)
		chart.Months[i] = b.Month.String()
		income.Data[i] = b.Income.Decimal().InexactFloat64()
		expense.Data[i] = b.Expense.Decimal().InexactFloat64()
	}
	chart.Datasets = []Dataset{income, expense}
	return chart
}

// ExportDocument is the printable summary: header, this month's totals and
// the most recent records.
type ExportDocument struct {
	Title       string   `json:"title"`
	GeneratedAt string   `json:"generated_at"`
	Month       string   `json:"month"`
	Income      string   `json:"income"`
	Expense     string   `json:"expense"`
	Left        string   `json:"left"`
	Lines       []string `json:"lines"`
	Empty       bool     `json:"empty"`
}

// ExportSummary builds the export document for the month containing now.
// An empty ledger yields the single line "No transactions recorded".
func (p *Presenter) ExportSummary(ctx context.Context, now time.Time, limit int) ExportDocument {
	if limit <= 0 {
		limit = p.exportLimit
	}
	s := p.engine.CurrentMonthSummary(ctx, now)
	doc := ExportDocument{
		Title:       ExportTitle,
		GeneratedAt: now.Format(generatedAtLayout),
		Month:       MonthLabel(s.Month),
		Income:      p.FormatCurrency(s.Income),
		Expense:     p.FormatCurrency(s.Expense),
		Left:        p.FormatCurrency(s.Balance()),
	}
	for _, tx := range p.RecentRecords(limit) {
		doc.Lines = append(doc.Lines, fmt.Sprintf("%s  •  %s  •  %s", tx.Date, tx.Title, p.SignedAmount(tx)))
	}
	if len(doc.Lines) == 0 {
		doc.Lines = []string{EmptyExportLine}
		doc.Empty = true
	}
	return doc
}
