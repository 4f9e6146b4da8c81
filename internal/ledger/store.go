// Package ledger owns the authoritative, ordered sequence of transactions
// for one ledger key and keeps its persisted snapshot in step.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"glow/internal/core"
	"glow/internal/log"
	"glow/internal/metrics"
)

// ErrNotPersisted marks an add that succeeded in memory while the snapshot
// write failed. It is always joined with the storage error.
var ErrNotPersisted = errors.New("transaction recorded but snapshot not persisted")

// ErrNotLoaded is returned by Add while the persisted snapshot could not be
// read. Writing then would replace the snapshot with a partial ledger.
var ErrNotLoaded = errors.New("ledger snapshot not loaded")

const maxIDAttempts = 8

// Snapshots is the persistence backend of a Store.
type Snapshots interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
}

// Publisher is notified after each durable add.
type Publisher interface {
	PublishAdded(ctx context.Context, ledger string, tx core.Transaction) error
}

type Option func(*Store)

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

func WithPublisher(p Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

// WithClock sets the clock used to name preserved corrupt snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// Store is a single-writer, many-reader ledger. Add holds the write lock
// across ID assignment, append and snapshot write.
type Store struct {
	mu        sync.RWMutex
	snapshots Snapshots
	key       string
	records   []core.Transaction
	index     map[string]int
	revision  int64

	// readErr is set while the snapshot could not be read; corrupt holds an
	// undecodable snapshot that must be copied aside before the first write.
	readErr error
	corrupt []byte

	now   func() time.Time
	newID     func() string
	publisher Publisher
	logger    *log.Logger
	metrics   *metrics.Metrics
}

// LoadReport summarises what Load restored.
type LoadReport struct {
	Records  int
	Dropped  int
	Damaged  int
	Degraded bool
	Err      error
}

func New(snapshots Snapshots, key string, opts ...Option) *Store {
	s := &Store{
		snapshots: snapshots,
		key:       key,
		index:     make(map[string]int),
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	s.logger = s.logger.WithComponent(log.ComponentLedger).With(log.FieldLedger, key)
	return s
}

// Key is the snapshot key this store persists under.
func (s *Store) Key() string {
	return s.key
}

// Load replaces the in-memory ledger with the persisted snapshot. It never
// fails: an absent, unreadable or corrupt snapshot yields an empty ledger,
// and individually broken records are dropped with a warning.
//
// After a degraded load the old snapshot is protected. An unreadable one
// blocks Add until a later read succeeds; a corrupt one is copied to
// "<key>.corrupt-<unix>" before the first write replaces it.
func (s *Store) Load(ctx context.Context) LoadReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) LoadReport {
	var report LoadReport
	s.readErr, s.corrupt = nil, nil

	data, err := s.snapshots.Read(ctx, s.key)
	var records []core.Transaction
	var problems []error
	switch {
	case errors.Is(err, core.ErrNotFound):
		s.logger.InfoContext(ctx, "No snapshot found, starting with an empty ledger")
	case err != nil:
		s.logger.WarnContext(ctx, "Snapshot unreadable, writes are blocked until it can be read", log.FieldError, err)
		report.Degraded = true
		report.Err = err
		s.readErr = err
	default:
		records, problems, err = core.DecodeSnapshot(data)
		if err != nil {
			s.logger.WarnContext(ctx, "Snapshot corrupt, starting with an empty ledger", log.FieldError, err)
			report.Degraded = true
			report.Err = err
			s.corrupt = data
			records, problems = nil, nil
		}
	}

	index := make(map[string]int, len(records))
	for i, tx := range records {
		index[tx.ID] = i
		if tx.Damaged() {
			report.Damaged++
		}
	}
	warned := make(map[string]bool)
	for _, p := range problems {
		var rec *core.RecordError
		if errors.As(p, &rec) && rec.ID != "" {
			if i, ok := index[rec.ID]; ok && records[i].Damaged() && !warned[rec.ID] {
				warned[rec.ID] = true
				s.logger.WarnContext(ctx, "Loaded record with unreadable amount, it will count as zero",
					log.FieldTxID, rec.ID, log.FieldError, p)
				continue
			}
		}
		report.Dropped++
		s.logger.WarnContext(ctx, "Dropped corrupt snapshot record", log.FieldError, p)
	}
	s.metrics.CorruptRecordsDropped(report.Dropped)

	s.records = records
	s.index = index
	s.revision = 0
	report.Records = len(records)

	s.logger.InfoContext(ctx, "Ledger loaded",
		log.FieldRecords, report.Records,
		"dropped", report.Dropped,
		"damaged", report.Damaged,
		"degraded", report.Degraded)
	return report
}

// Recover retries a load that failed to read the snapshot. It returns nil
// once the ledger is writable and ErrNotLoaded otherwise.
func (s *Store) Recover(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recoverLocked(ctx)
}

func (s *Store) recoverLocked(ctx context.Context) error {
	if s.readErr == nil {
		return nil
	}
	s.loadLocked(ctx)
	if s.readErr != nil {
		return fmt.Errorf("%w: %w", ErrNotLoaded, s.readErr)
	}
	return nil
}

// preserveLocked copies a corrupt snapshot aside so the next write does not
// destroy it.
func (s *Store) preserveLocked(ctx context.Context) error {
	if s.corrupt == nil {
		return nil
	}
	backup := fmt.Sprintf("%s.corrupt-%d", s.key, s.now().Unix())
	if err := s.snapshots.Write(ctx, backup, s.corrupt); err != nil {
		return fmt.Errorf("%w: preserve corrupt snapshot as %s: %w", ErrNotLoaded, backup, err)
	}
	s.logger.WarnContext(ctx, "Preserved corrupt snapshot before overwriting it", "backup_key", backup)
	s.corrupt = nil
	return nil
}

// Add validates the candidate, appends it and persists the whole ledger.
//
// Invalid input returns an error wrapping core.ErrInvalidInput and leaves
// the ledger untouched, as does ErrNotLoaded. When the snapshot write fails the record stays in
// memory and is returned together with an error wrapping both
// ErrNotPersisted and core.ErrStorageUnavailable.
func (s *Store) Add(ctx context.Context, c core.Candidate) (core.Transaction, error) {
	tx, err := c.Parse()
	if err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	if err := s.recoverLocked(ctx); err != nil {
		s.mu.Unlock()
		return core.Transaction{}, err
	}
	if err := s.preserveLocked(ctx); err != nil {
		s.mu.Unlock()
		return core.Transaction{}, err
	}
	id, err := s.uniqueID()
	if err != nil {
		s.mu.Unlock()
		return core.Transaction{}, err
	}
	tx.ID = id

	s.index[tx.ID] = len(s.records)
	s.records = append(s.records, tx)
	s.revision++
	persistErr := s.persist(ctx)
	s.mu.Unlock()

	s.metrics.TransactionAdded(string(tx.Kind))
	logger := s.logger.With(log.NewFields().
		WithTransaction(s.key, tx.ID, string(tx.Kind), tx.Amount.Cents).
		ToSlice()...)

	if persistErr != nil {
		s.metrics.SnapshotWriteFailed()
		logger.ErrorContext(ctx, "Transaction kept in memory, snapshot write failed", log.FieldError, persistErr)
		return tx, fmt.Errorf("%w: %w", ErrNotPersisted, persistErr)
	}
	logger.InfoContext(ctx, "Transaction added")

	if s.publisher != nil {
		if err := s.publisher.PublishAdded(ctx, s.key, tx); err != nil {
			logger.WarnContext(ctx, "Failed to publish transaction event", log.FieldError, err)
		}
	}
	return tx, nil
}

// uniqueID must be called with the write lock held.
func (s *Store) uniqueID() (string, error) {
	for range maxIDAttempts {
		id := s.newID()
		if id == "" {
			continue
		}
		if _, taken := s.index[id]; !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique transaction id after %d attempts", maxIDAttempts)
}

// persist must be called with the write lock held.
func (s *Store) persist(ctx context.Context) error {
	data, err := core.EncodeSnapshot(s.records)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrStorageUnavailable, err)
	}
	if err := s.snapshots.Write(ctx, s.key, data); err != nil {
		if !errors.Is(err, core.ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %v", core.ErrStorageUnavailable, err)
		}
		return err
	}
	return nil
}

// All returns the ledger oldest first. The slice is a fresh copy.
func (s *Store) All() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, len(s.records))
	copy(out, s.records)
	return out
}

// Get returns the transaction with the given id or core.ErrNotFound.
func (s *Store) Get(id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return s.records[i], nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Revision counts the adds applied since the last Load.
func (s *Store) Revision() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// IsDurabilityWarning reports whether err only signals that a recorded
// transaction could not be persisted.
func IsDurabilityWarning(err error) bool {
	return errors.Is(err, ErrNotPersisted)
}
