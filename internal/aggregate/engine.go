// Package aggregate derives monthly totals from the ledger. Every call
// recomputes from the current records; nothing is cached.
package aggregate

import (
	"context"
	"time"

	"glow/internal/core"
	"glow/internal/log"
	"glow/internal/metrics"
)

// DefaultTrailingMonths is the window of the dashboard chart.
const DefaultTrailingMonths = 6

// Source provides the ledger records, oldest first.
type Source interface {
	All() []core.Transaction
}

type Engine struct {
	source  Source
	logger  *log.Logger
	metrics *metrics.Metrics
}

func New(source Source, logger *log.Logger, m *metrics.Metrics) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		source:  source,
		logger:  logger.WithComponent(log.ComponentAggregate),
		metrics: m,
	}
}

// MonthKey is the bucket a date falls into.
func MonthKey(d core.Date) core.MonthKey {
	return core.MonthKeyOf(d)
}

// CurrentMonthSummary totals the records in the month containing now.
func (e *Engine) CurrentMonthSummary(ctx context.Context, now time.Time) core.Summary {
	month := MonthKey(core.DateOf(now))
	summary := core.Summary{Month: month}
	for _, tx := range e.source.All() {
		if tx.MonthKey() != month {
			continue
		}
		amount := e.contribution(ctx, tx)
		switch tx.Kind {
		case core.Income:
			summary.Income = summary.Income.Add(amount)
		case core.Expense:
			summary.Expense = summary.Expense.Add(amount)
		}
	}
	return summary
}

// TrailingMonthsSeries returns n consecutive month buckets ending with the
// month containing now, oldest first. Records outside the window are
// ignored; n <= 0 yields an empty series.
func (e *Engine) TrailingMonthsSeries(ctx context.Context, now time.Time, n int) []core.MonthTotals {
	if n <= 0 {
		return []core.MonthTotals{}
	}
	last := MonthKey(core.DateOf(now))
	first := last.Add(-(n - 1))

	series := make([]core.MonthTotals, n)
	for i := range series {
		series[i].Month = first.Add(i)
	}

	for _, tx := range e.source.All() {
		i := tx.MonthKey().Ordinal() - first.Ordinal()
		if i < 0 || i >= n {
			continue
		}
		amount := e.contribution(ctx, tx)
		switch tx.Kind {
		case core.Income:
			series[i].Income = series[i].Income.Add(amount)
		case core.Expense:
			series[i].Expense = series[i].Expense.Add(amount)
		}
	}
	return series
}

func (e *Engine) contribution(ctx context.Context, tx core.Transaction) core.Money {
	amount, err := tx.Contribution()
	if err != nil {
		e.metrics.CorruptRecordSkipped()
		e.logger.WarnContext(ctx, "Skipping unreadable amount in aggregation",
			log.FieldTxID, tx.ID, log.FieldError, err)
		return core.Money{}
	}
	return amount
}
