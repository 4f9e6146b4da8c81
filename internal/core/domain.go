package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

type (
	Kind string

	Date struct {
		time.Time
	}

	// Transaction is a single ledger record. Records are created once through
	// the ledger and never mutated afterwards.
	Transaction struct {
		ID       string
		Title    string
		Amount   Money
		Kind     Kind
		Date     Date
		Category string

		// set by DecodeSnapshot when the persisted amount could not be read
		amountErr error
		amountRaw []byte
	}

	// Candidate is raw user input for a new transaction, as typed in a form.
	Candidate struct {
		Title    string
		Amount   string
		Kind     string
		Date     string
		Category string
	}
)

// Error taxonomy shared by the ledger, its storage backends and the
// presentation layer.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrCorruptRecord      = errors.New("corrupt record")
	ErrNotFound           = errors.New("not found")
)

var (
	ErrEmptyTitle    = fmt.Errorf("%w: empty title", ErrInvalidInput)
	ErrInvalidAmount = fmt.Errorf("%w: invalid amount", ErrInvalidInput)
	ErrMissingDate   = fmt.Errorf("%w: missing date", ErrInvalidInput)
	ErrInvalidDate   = fmt.Errorf("%w: invalid date", ErrInvalidInput)
	ErrInvalidKind   = fmt.Errorf("%w: invalid kind", ErrInvalidInput)
)

const isoDate = "2006-01-02"

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD). A full RFC 3339
// timestamp is accepted and truncated to its date part.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrMissingDate
	}
	if len(s) > len(isoDate) && s[len(isoDate)] == 'T' {
		s = s[:len(isoDate)]
	}
	t, err := time.Parse(isoDate, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(isoDate)
}

// ParseKind maps form input to a Kind. An empty value defaults to expense,
// which is what the entry form preselects.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Expense):
		return Expense, nil
	case string(Income):
		return Income, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

// Sign is the prefix shown next to an amount of this kind.
func (k Kind) Sign() string {
	if k == Expense {
		return "-"
	}
	return "+"
}

// Parse validates the candidate and returns the transaction it describes,
// without an ID. All failures wrap ErrInvalidInput.
func (c Candidate) Parse() (Transaction, error) {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return Transaction{}, ErrEmptyTitle
	}
	amount, err := ParseAmount(c.Amount)
	if err != nil {
		return Transaction{}, err
	}
	date, err := ParseDate(c.Date)
	if err != nil {
		return Transaction{}, err
	}
	kind, err := ParseKind(c.Kind)
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{
		Title:    title,
		Amount:   amount,
		Kind:     kind,
		Date:     date,
		Category: strings.TrimSpace(c.Category),
	}, nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, t.Kind)
	}
	return t.Amount.Validate()
}

// MonthKey is the bucket the transaction falls into.
func (t Transaction) MonthKey() MonthKey {
	return MonthKeyOf(t.Date)
}

// Contribution is the amount this record adds to aggregations. Records whose
// persisted amount was unreadable report ErrCorruptRecord and a zero amount.
func (t Transaction) Contribution() (Money, error) {
	if t.amountErr != nil {
		return Money{}, t.amountErr
	}
	return t.Amount, nil
}

// Damaged reports whether the record was loaded with an unreadable amount.
func (t Transaction) Damaged() bool {
	return t.amountErr != nil
}
