// Package worker keeps a spreadsheet mirror of the ledger up to date, from
// AMQP notifications and a periodic reconcile pass.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"glow/internal/amqp"
	"glow/internal/cache"
	"glow/internal/core"
	"glow/internal/ledger"
	"glow/internal/log"
	"glow/internal/metrics"
	"glow/internal/sheets"
)

const (
	knownIDs   = 100_000
	knownIDTTL = time.Hour
)

// Consumer delivers transaction added messages until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

// Mirror appends ledger records missing from the target sheet. Appends are
// serialized so the same record is never written twice by this process.
type Mirror struct {
	store   *ledger.Store
	target  sheets.Target
	logger  *log.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	known *cache.LRUCache[struct{}]
}

func NewMirror(store *ledger.Store, target sheets.Target, logger *log.Logger, m *metrics.Metrics) *Mirror {
	if logger == nil {
		logger = log.Default()
	}
	return &Mirror{
		store:   store,
		target:  target,
		logger:  logger.WithComponent(log.ComponentWorker),
		metrics: m,
		known:   cache.NewLRUCache[struct{}](knownIDs, knownIDTTL),
	}
}

// Known exposes the mirrored-ID cache so the caller can schedule cleanup.
func (m *Mirror) Known() *cache.LRUCache[struct{}] {
	return m.known
}

func (m *Mirror) reload(ctx context.Context) error {
	report := m.store.Load(ctx)
	if report.Degraded {
		return fmt.Errorf("reload ledger %s: %w", m.store.Key(), report.Err)
	}
	return nil
}

func (m *Mirror) refreshKnown(ctx context.Context) error {
	ids, err := m.target.MirroredIDs(ctx)
	if err != nil {
		return err
	}
	for id := range ids {
		m.known.Set(id, struct{}{})
	}
	return nil
}

// HandleAdded mirrors the record named by msg. Messages for another ledger
// are acknowledged and ignored; an ID missing from the snapshot is left to
// the next reconcile pass.
func (m *Mirror) HandleAdded(ctx context.Context, msg *amqp.TransactionAddedMessage) error {
	logger := m.logger.With(log.FieldTxID, msg.ID, log.FieldLedger, msg.Ledger)
	if msg.Ledger != m.store.Key() {
		logger.WarnContext(ctx, "Ignoring message for another ledger")
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.known.Get(msg.ID); ok {
		logger.DebugContext(ctx, "Transaction already mirrored")
		return nil
	}
	if err := m.reload(ctx); err != nil {
		return err
	}
	tx, err := m.store.Get(msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		logger.WarnContext(ctx, "Transaction not in snapshot, deferring to reconcile")
		return nil
	}
	if err != nil {
		return err
	}

	if err := m.refreshKnown(ctx); err != nil {
		return fmt.Errorf("list mirrored ids: %w", err)
	}
	if _, ok := m.known.Get(msg.ID); ok {
		return nil
	}
	if err := m.target.AppendTransactions(ctx, []core.Transaction{tx}); err != nil {
		return fmt.Errorf("mirror %s: %w", tx.ID, err)
	}
	m.known.Set(tx.ID, struct{}{})
	m.metrics.TransactionsMirrored(1)
	logger.InfoContext(ctx, "Transaction mirrored", log.FieldOperation, log.OpMirror)
	return nil
}

// Reconcile appends every ledger record whose ID is not yet in the sheet,
// in ledger order, and returns how many were appended.
func (m *Mirror) Reconcile(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.reload(ctx); err != nil {
		return 0, err
	}
	present, err := m.target.MirroredIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list mirrored ids: %w", err)
	}

	var missing []core.Transaction
	for _, tx := range m.store.All() {
		if _, ok := present[tx.ID]; ok {
			m.known.Set(tx.ID, struct{}{})
			continue
		}
		missing = append(missing, tx)
	}
	if len(missing) == 0 {
		return 0, nil
	}

	if err := m.target.AppendTransactions(ctx, missing); err != nil {
		return 0, fmt.Errorf("append %d missing records: %w", len(missing), err)
	}
	for _, tx := range missing {
		m.known.Set(tx.ID, struct{}{})
	}
	m.metrics.TransactionsMirrored(len(missing))
	m.logger.InfoContext(ctx, "Reconciled mirror", log.FieldOperation, log.OpMirror, log.FieldRecords, len(missing))
	return len(missing), nil
}

// Run reconciles once, then consumes messages and reconciles every interval
// until ctx is cancelled. A nil consumer runs the reconcile loop alone.
func (m *Mirror) Run(ctx context.Context, consumer Consumer, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			return consumer.Consume(ctx, m.HandleAdded)
		})
	}
	g.Go(func() error {
		m.reconcileLogged(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				m.reconcileLogged(ctx)
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (m *Mirror) reconcileLogged(ctx context.Context) {
	if _, err := m.Reconcile(ctx); err != nil && ctx.Err() == nil {
		m.logger.ErrorContext(ctx, "Reconcile failed", log.FieldError, err)
	}
}
