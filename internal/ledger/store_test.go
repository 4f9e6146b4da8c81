package ledger

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"glow/internal/core"
	"glow/internal/log"
	"glow/internal/metrics"
	"glow/internal/storage"
)

type flakySnapshots struct {
	*storage.Memory
	mu       sync.Mutex
	failRead error
	failNext bool
	writes   int
}

func newFlaky() *flakySnapshots {
	return &flakySnapshots{Memory: storage.NewMemory()}
}

func (f *flakySnapshots) Read(ctx context.Context, key string) ([]byte, error) {
	if f.failRead != nil {
		return nil, f.failRead
	}
	return f.Memory.Read(ctx, key)
}

func (f *flakySnapshots) Write(ctx context.Context, key string, data []byte) error {
	f.mu.Lock()
	f.writes++
	fail := f.failNext
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("%w: disk full", core.ErrStorageUnavailable)
	}
	return f.Memory.Write(ctx, key, data)
}

type recordingPublisher struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (p *recordingPublisher) PublishAdded(_ context.Context, _ string, tx core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, tx.ID)
	return p.err
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("tx-%d", n)
	}
}

func newStore(snaps Snapshots, opts ...Option) *Store {
	opts = append([]Option{WithLogger(log.Discard()), WithIDGenerator(sequentialIDs())}, opts...)
	return New(snaps, "glow_transactions_v1", opts...)
}

func TestAdd_AppendsOneRoundedRecord(t *testing.T) {
	ctx := context.Background()
	s := newStore(storage.NewMemory())
	s.Load(ctx)

	before := len(s.All())
	tx, err := s.Add(ctx, core.Candidate{Title: " Groceries ", Amount: "12.345", Kind: "expense", Date: "2024-06-15"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	all := s.All()
	if len(all) != before+1 {
		t.Fatalf("expected %d records, got %d", before+1, len(all))
	}
	if tx.Amount.Cents != 1235 {
		t.Errorf("amount = %d cents, want 1235", tx.Amount.Cents)
	}
	if tx.Title != "Groceries" || tx.ID == "" || tx.Category != "" {
		t.Errorf("unexpected record %+v", tx)
	}
	if !reflect.DeepEqual(all[len(all)-1], tx) {
		t.Errorf("stored record differs from returned one")
	}
}

func TestAdd_InvalidInputLeavesLedgerUnchanged(t *testing.T) {
	ctx := context.Background()
	snaps := newFlaky()
	s := newStore(snaps)
	s.Load(ctx)
	if _, err := s.Add(ctx, core.Candidate{Title: "Salary", Amount: "100", Kind: "income", Date: "2024-06-01"}); err != nil {
		t.Fatal(err)
	}
	writes := snaps.writes

	cases := map[string]core.Candidate{
		"empty title":        {Title: "  ", Amount: "10", Date: "2024-06-01"},
		"non-numeric amount": {Title: "x", Amount: "ten", Date: "2024-06-01"},
		"negative amount":    {Title: "x", Amount: "-1", Date: "2024-06-01"},
		"missing date":       {Title: "x", Amount: "10"},
		"unknown kind":       {Title: "x", Amount: "10", Kind: "transfer", Date: "2024-06-01"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			before := s.All()
			_, err := s.Add(ctx, c)
			if !errors.Is(err, core.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if !reflect.DeepEqual(before, s.All()) {
				t.Fatal("ledger changed after invalid input")
			}
		})
	}
	if snaps.writes != writes {
		t.Errorf("invalid input triggered %d snapshot writes", snaps.writes-writes)
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	snaps := storage.NewMemory()
	s := newStore(snaps)
	s.Load(ctx)
	for i, c := range []core.Candidate{
		{Title: "Salary", Amount: "100", Kind: "income", Date: "2024-06-01"},
		{Title: "Rent", Amount: "40", Kind: "expense", Date: "2024-06-15", Category: "home"},
		{Title: "Bonus", Amount: "10,5", Kind: "INCOME", Date: "2024-07-01"},
	} {
		if _, err := s.Add(ctx, c); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	reloaded := newStore(snaps)
	report := reloaded.Load(ctx)
	if report.Records != 3 || report.Dropped != 0 || report.Degraded {
		t.Fatalf("unexpected report %+v", report)
	}
	if !reflect.DeepEqual(s.All(), reloaded.All()) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", s.All(), reloaded.All())
	}
}

func TestLoad_DegradesToEmpty(t *testing.T) {
	ctx := context.Background()

	t.Run("missing snapshot", func(t *testing.T) {
		report := newStore(storage.NewMemory()).Load(ctx)
		if report.Records != 0 || report.Degraded {
			t.Fatalf("unexpected report %+v", report)
		}
	})

	t.Run("unavailable storage", func(t *testing.T) {
		snaps := newFlaky()
		snaps.failRead = fmt.Errorf("%w: permission denied", core.ErrStorageUnavailable)
		s := newStore(snaps)
		report := s.Load(ctx)
		if !report.Degraded || !errors.Is(report.Err, core.ErrStorageUnavailable) {
			t.Fatalf("unexpected report %+v", report)
		}
		if s.Len() != 0 {
			t.Fatalf("expected empty ledger, got %d", s.Len())
		}
	})

	t.Run("corrupt document", func(t *testing.T) {
		snaps := storage.NewMemory()
		_ = snaps.Write(ctx, "glow_transactions_v1", []byte(`{"not":"a list"`))
		s := newStore(snaps)
		report := s.Load(ctx)
		if !report.Degraded || !errors.Is(report.Err, core.ErrCorruptRecord) {
			t.Fatalf("unexpected report %+v", report)
		}
		if s.Len() != 0 {
			t.Fatalf("expected empty ledger, got %d", s.Len())
		}
	})
}

func TestAdd_PreservesCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	const key = "glow_transactions_v1"
	corrupt := []byte(`[{"id":"a","title":"Rent","amount":`)

	t.Run("copied aside before the first write", func(t *testing.T) {
		snaps := storage.NewMemory()
		_ = snaps.Write(ctx, key, corrupt)
		clock := time.Unix(1718000000, 0)
		s := newStore(snaps, WithClock(func() time.Time { return clock }))
		if report := s.Load(ctx); !report.Degraded {
			t.Fatalf("expected degraded load, got %+v", report)
		}

		if _, err := s.Add(ctx, core.Candidate{Title: "Coffee", Amount: "3"}); err != nil {
			t.Fatalf("Add: %v", err)
		}
		backup, err := snaps.Read(ctx, key+".corrupt-1718000000")
		if err != nil {
			t.Fatalf("backup missing: %v", err)
		}
		if string(backup) != string(corrupt) {
			t.Fatalf("backup = %q, want the original bytes", backup)
		}
		current, _ := snaps.Read(ctx, key)
		txs, _, err := core.DecodeSnapshot(current)
		if err != nil || len(txs) != 1 {
			t.Fatalf("snapshot after add: %d records, err=%v", len(txs), err)
		}

		if _, err := s.Add(ctx, core.Candidate{Title: "Tea", Amount: "2"}); err != nil {
			t.Fatalf("second Add: %v", err)
		}
	})

	t.Run("write refused when the copy fails", func(t *testing.T) {
		snaps := newFlaky()
		_ = snaps.Memory.Write(ctx, key, corrupt)
		s := newStore(snaps)
		s.Load(ctx)
		snaps.failNext = true

		_, err := s.Add(ctx, core.Candidate{Title: "Coffee", Amount: "3"})
		if !errors.Is(err, ErrNotLoaded) {
			t.Fatalf("expected ErrNotLoaded, got %v", err)
		}
		if s.Len() != 0 {
			t.Fatalf("ledger changed: %d records", s.Len())
		}
		if current, _ := snaps.Memory.Read(ctx, key); string(current) != string(corrupt) {
			t.Fatalf("snapshot overwritten: %q", current)
		}
	})
}

func TestAdd_BlockedWhileSnapshotUnreadable(t *testing.T) {
	ctx := context.Background()
	const key = "glow_transactions_v1"
	snaps := newFlaky()
	seeded := newStore(snaps)
	seeded.Load(ctx)
	if _, err := seeded.Add(ctx, core.Candidate{Title: "Salary", Amount: "100", Kind: "income"}); err != nil {
		t.Fatal(err)
	}
	before, _ := snaps.Memory.Read(ctx, key)

	snaps.failRead = fmt.Errorf("%w: i/o timeout", core.ErrStorageUnavailable)
	s := newStore(snaps)
	s.Load(ctx)

	_, err := s.Add(ctx, core.Candidate{Title: "Coffee", Amount: "3"})
	if !errors.Is(err, ErrNotLoaded) || IsDurabilityWarning(err) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	if after, _ := snaps.Memory.Read(ctx, key); string(after) != string(before) {
		t.Fatalf("snapshot overwritten while unreadable: %s", after)
	}
	if err := s.Recover(ctx); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("Recover with failing reads = %v", err)
	}

	snaps.failRead = nil
	if err := s.Recover(ctx); err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected the persisted record after recovery, got %d", s.Len())
	}
	if _, err := s.Add(ctx, core.Candidate{Title: "Coffee", Amount: "3"}); err != nil {
		t.Fatalf("Add after recovery: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", s.Len())
	}
}

func TestLoad_DropsCorruptRecordsKeepsSiblings(t *testing.T) {
	ctx := context.Background()
	snaps := storage.NewMemory()
	_ = snaps.Write(ctx, "glow_transactions_v1", []byte(`[
		{"id":"a","title":"Salary","amount":100,"type":"income","date":"2024-06-01","category":""},
		{"id":"","title":"No id","amount":1,"type":"income","date":"2024-06-01"},
		{"id":"b","title":"Broken","amount":"abc","type":"expense","date":"2024-06-02"},
		{"id":"c","title":"Bad date","amount":5,"type":"expense","date":"June"}
	]`))

	m := metrics.New()
	s := newStore(snaps, WithMetrics(m))
	report := s.Load(ctx)
	if report.Records != 2 || report.Dropped != 2 || report.Damaged != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	all := s.All()
	if all[0].ID != "a" || all[1].ID != "b" || !all[1].Damaged() {
		t.Fatalf("unexpected survivors %+v", all)
	}
}

func TestAdd_WriteFailureKeepsRecord(t *testing.T) {
	ctx := context.Background()
	snaps := newFlaky()
	pub := &recordingPublisher{}
	s := newStore(snaps, WithPublisher(pub), WithMetrics(metrics.New()))
	s.Load(ctx)

	snaps.failNext = true
	tx, err := s.Add(ctx, core.Candidate{Title: "Coffee", Amount: "3", Date: "2024-06-03"})
	if err == nil {
		t.Fatal("expected durability error")
	}
	if !IsDurabilityWarning(err) || !errors.Is(err, core.ErrStorageUnavailable) {
		t.Fatalf("expected durability warning wrapping ErrStorageUnavailable, got %v", err)
	}
	if errors.Is(err, core.ErrInvalidInput) {
		t.Fatal("durability failure must not look like invalid input")
	}
	if tx.ID == "" || s.Len() != 1 {
		t.Fatalf("record should stay in memory, got %+v len=%d", tx, s.Len())
	}
	if len(pub.ids) != 0 {
		t.Fatalf("non-durable add was published: %v", pub.ids)
	}

	// the next successful write carries the earlier record too
	snaps.failNext = false
	if _, err := s.Add(ctx, core.Candidate{Title: "Tea", Amount: "2", Date: "2024-06-04"}); err != nil {
		t.Fatal(err)
	}
	reloaded := newStore(snaps.Memory)
	if report := reloaded.Load(ctx); report.Records != 2 {
		t.Fatalf("expected both records persisted, got %+v", report)
	}
}

func TestAdd_PublishesDurableAdds(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	s := newStore(storage.NewMemory(), WithPublisher(pub))
	s.Load(ctx)

	tx, err := s.Add(ctx, core.Candidate{Title: "Book", Amount: "9.99", Date: "2024-06-05"})
	if err != nil {
		t.Fatalf("publish failure must not fail Add: %v", err)
	}
	if len(pub.ids) != 1 || pub.ids[0] != tx.ID {
		t.Fatalf("expected publish of %s, got %v", tx.ID, pub.ids)
	}
}

func TestAdd_RetriesCollidingIDs(t *testing.T) {
	ctx := context.Background()
	ids := []string{"dup", "dup", "", "fresh"}
	gen := func() string {
		id := ids[0]
		if len(ids) > 1 {
			ids = ids[1:]
		}
		return id
	}
	s := New(storage.NewMemory(), "k", WithLogger(log.Discard()), WithIDGenerator(gen))
	s.Load(ctx)

	first, err := s.Add(ctx, core.Candidate{Title: "a", Amount: "1", Date: "2024-06-01"})
	if err != nil || first.ID != "dup" {
		t.Fatalf("first add: %+v %v", first, err)
	}
	second, err := s.Add(ctx, core.Candidate{Title: "b", Amount: "1", Date: "2024-06-01"})
	if err != nil || second.ID != "fresh" {
		t.Fatalf("second add: %+v %v", second, err)
	}

	stuck := New(storage.NewMemory(), "k", WithLogger(log.Discard()), WithIDGenerator(func() string { return "same" }))
	if _, err := stuck.Add(ctx, core.Candidate{Title: "a", Amount: "1", Date: "2024-06-01"}); err != nil {
		t.Fatal(err)
	}
	if _, err := stuck.Add(ctx, core.Candidate{Title: "b", Amount: "1", Date: "2024-06-01"}); err == nil {
		t.Fatal("expected id exhaustion error")
	}
	if stuck.Len() != 1 {
		t.Fatalf("failed add changed the ledger: %d records", stuck.Len())
	}
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	s := newStore(storage.NewMemory())
	tx, _ := s.Add(ctx, core.Candidate{Title: "a", Amount: "1", Date: "2024-06-01"})

	got, err := s.Get(tx.ID)
	if err != nil || got.ID != tx.ID {
		t.Fatalf("Get(%s) = %+v, %v", tx.ID, got, err)
	}
	if _, err := s.Get("missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := newStore(storage.NewMemory())
	_, _ = s.Add(ctx, core.Candidate{Title: "a", Amount: "1", Date: "2024-06-01"})

	all := s.All()
	all[0].Title = "changed"
	if s.All()[0].Title != "a" {
		t.Fatal("All exposed internal state")
	}
}

func TestAdd_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	snaps := storage.NewMemory()
	s := New(snaps, "glow_transactions_v1", WithLogger(log.Discard()))

	const writers = 20
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Add(ctx, core.Candidate{Title: fmt.Sprintf("t%d", i), Amount: "1", Date: "2024-06-01"})
			if err != nil {
				t.Error(err)
			}
			_ = s.All()
		}()
	}
	wg.Wait()

	if s.Len() != writers || s.Revision() != writers {
		t.Fatalf("len=%d revision=%d, want %d", s.Len(), s.Revision(), writers)
	}
	reloaded := New(snaps, "glow_transactions_v1", WithLogger(log.Discard()))
	if report := reloaded.Load(ctx); report.Records != writers {
		t.Fatalf("last snapshot holds %d records, want %d", report.Records, writers)
	}
}
