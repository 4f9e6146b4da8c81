package core

import (
	"fmt"
	"time"
)

// MonthKey identifies a calendar month bucket.
type MonthKey struct {
	Year  int
	Month time.Month
}

func MonthKeyOf(d Date) MonthKey {
	return MonthKey{Year: d.Year(), Month: d.Month()}
}

// Add moves the key by n months, crossing year boundaries as needed.
func (k MonthKey) Add(n int) MonthKey {
	t := time.Date(k.Year, k.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// Ordinal counts months since year 0; consecutive months differ by one.
func (k MonthKey) Ordinal() int {
	return k.Year*12 + int(k.Month) - 1
}

// String renders the key as YYYY-MM.
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Summary holds the totals for a single month.
type Summary struct {
	Month   MonthKey
	Income  Money
	Expense Money
}

// Balance is income minus expense; it can be negative.
func (s Summary) Balance() Money {
	return s.Income.Sub(s.Expense)
}

// MonthTotals is one bucket of a trailing series.
type MonthTotals struct {
	Month   MonthKey
	Income  Money
	Expense Money
}
