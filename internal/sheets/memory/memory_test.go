package memory

import (
	"context"
	"errors"
	"testing"

	"glow/internal/core"
)

func TestSheet(t *testing.T) {
	ctx := context.Background()
	s := New()

	tx, err := core.Candidate{Title: "Rent", Amount: "40", Kind: "expense", Date: "2024-06-03", Category: "home"}.Parse()
	if err != nil {
		t.Fatal(err)
	}
	tx.ID = "tx-1"

	if err := s.AppendTransactions(ctx, []core.Transaction{tx}); err != nil {
		t.Fatal(err)
	}
	rows := s.Rows()
	if len(rows) != 1 || rows[0][0] != "tx-1" || rows[0][4] != "40.00" || rows[0][5] != "home" {
		t.Fatalf("rows = %v", rows)
	}
	ids, err := s.MirroredIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ids["tx-1"]; !ok || len(ids) != 1 {
		t.Fatalf("ids = %v", ids)
	}

	boom := errors.New("quota exceeded")
	s.FailWith(boom)
	if err := s.AppendTransactions(ctx, []core.Transaction{tx}); !errors.Is(err, boom) {
		t.Fatalf("AppendTransactions() = %v", err)
	}
	if _, err := s.MirroredIDs(ctx); !errors.Is(err, boom) {
		t.Fatalf("MirroredIDs() = %v", err)
	}
	if s.Appends() != 1 {
		t.Fatalf("Appends() = %d", s.Appends())
	}
}
