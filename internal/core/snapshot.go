package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// snapshotRecord is the persisted form of a Transaction. Older snapshots
// stored the kind under "type"; both are read, only "kind" is written.
type snapshotRecord struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Amount   json.RawMessage `json:"amount"`
	Kind     string          `json:"kind,omitempty"`
	Type     string          `json:"type,omitempty"`
	Date     string          `json:"date"`
	Category string          `json:"category"`
}

// RecordError describes a snapshot entry that could not be restored.
type RecordError struct {
	Index int
	ID    string
	Err   error
}

func (e *RecordError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("snapshot record %d (id %s): %v", e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("snapshot record %d: %v", e.Index, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// EncodeSnapshot serialises the ledger as an ordered JSON array.
func EncodeSnapshot(txs []Transaction) ([]byte, error) {
	out := make([]snapshotRecord, 0, len(txs))
	for _, tx := range txs {
		amount := json.RawMessage(tx.Amount.String())
		if tx.amountErr != nil && len(tx.amountRaw) > 0 {
			// keep what was on disk rather than silently writing zero
			amount = tx.amountRaw
		}
		out = append(out, snapshotRecord{
			ID:       tx.ID,
			Title:    tx.Title,
			Amount:   amount,
			Kind:     string(tx.Kind),
			Date:     tx.Date.String(),
			Category: tx.Category,
		})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot restores a ledger from its serialised form.
//
// A document that is not a JSON array fails as a whole with ErrCorruptRecord.
// Individual entries without an id, with an unknown kind or an unreadable
// date are dropped and reported in problems. Entries with an unreadable
// amount are kept and flagged: they contribute zero to aggregations.
func DecodeSnapshot(data []byte) (txs []Transaction, problems []error, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: snapshot is not a list: %v", ErrCorruptRecord, err)
	}

	seen := make(map[string]struct{}, len(raw))
	txs = make([]Transaction, 0, len(raw))
	for i, entry := range raw {
		tx, err := decodeRecord(entry)
		if err == nil {
			if _, dup := seen[tx.ID]; dup {
				err = fmt.Errorf("%w: duplicate id", ErrCorruptRecord)
			}
		}
		if err != nil {
			problems = append(problems, &RecordError{Index: i, ID: tx.ID, Err: err})
			continue
		}
		seen[tx.ID] = struct{}{}
		if tx.amountErr != nil {
			problems = append(problems, &RecordError{Index: i, ID: tx.ID, Err: tx.amountErr})
		}
		txs = append(txs, tx)
	}
	return txs, problems, nil
}

func decodeRecord(entry json.RawMessage) (Transaction, error) {
	var rec snapshotRecord
	if err := json.Unmarshal(entry, &rec); err != nil {
		return Transaction{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	tx := Transaction{
		ID:       strings.TrimSpace(rec.ID),
		Title:    rec.Title,
		Category: rec.Category,
	}
	if tx.ID == "" {
		return tx, fmt.Errorf("%w: missing id", ErrCorruptRecord)
	}

	kind := rec.Kind
	if kind == "" {
		kind = rec.Type
	}
	tx.Kind = Kind(strings.ToLower(strings.TrimSpace(kind)))
	if !tx.Kind.Valid() {
		return tx, fmt.Errorf("%w: unknown kind %q", ErrCorruptRecord, kind)
	}

	date, err := ParseDate(rec.Date)
	if err != nil {
		return tx, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	tx.Date = date

	amount, err := decodeAmount(rec.Amount)
	if err != nil {
		tx.amountErr = fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		tx.amountRaw = append([]byte(nil), rec.Amount...)
		return tx, nil
	}
	tx.Amount = amount
	return tx, nil
}

// decodeAmount accepts a JSON number or a numeric string.
func decodeAmount(raw json.RawMessage) (Money, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Money{}, fmt.Errorf("missing amount")
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return Money{}, fmt.Errorf("amount %s: %v", raw, err)
	}
	m, err := MoneyFromDecimal(d)
	if err != nil {
		return Money{}, err
	}
	return m, nil
}
