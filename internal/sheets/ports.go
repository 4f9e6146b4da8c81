// Package sheets mirrors ledger records into a spreadsheet. The mirror is
// append-only, keyed by transaction ID in the first column.
package sheets

import (
	"context"

	"glow/internal/core"
)

// Header is the first row of a mirror sheet.
var Header = []any{"ID", "Date", "Title", "Kind", "Amount", "Category"}

// Target is a spreadsheet the worker appends to.
type Target interface {
	// AppendTransactions adds one row per record, in order.
	AppendTransactions(ctx context.Context, txs []core.Transaction) error
	// MirroredIDs lists the IDs already present in the sheet.
	MirroredIDs(ctx context.Context) (map[string]struct{}, error)
}

// Row renders tx as sheet cells. A damaged record gets an empty amount.
func Row(tx core.Transaction) []any {
	amount := ""
	if !tx.Damaged() {
		amount = tx.Amount.String()
	}
	return []any{tx.ID, tx.Date.String(), tx.Title, string(tx.Kind), amount, tx.Category}
}
