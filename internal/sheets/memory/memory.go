// Package memory is an in-process mirror sheet for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"glow/internal/core"
	"glow/internal/sheets"
)

var _ sheets.Target = (*Sheet)(nil)

type Sheet struct {
	mu      sync.Mutex
	rows    [][]any
	failErr error
	appends int
}

func New() *Sheet {
	return &Sheet{}
}

// FailWith makes every call return err until it is called with nil.
func (s *Sheet) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

func (s *Sheet) AppendTransactions(_ context.Context, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	for _, tx := range txs {
		s.rows = append(s.rows, sheets.Row(tx))
	}
	s.appends++
	return nil
}

func (s *Sheet) MirroredIDs(_ context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	ids := make(map[string]struct{}, len(s.rows))
	for _, row := range s.rows {
		ids[fmt.Sprint(row[0])] = struct{}{}
	}
	return ids, nil
}

// Rows returns a copy of the appended rows.
func (s *Sheet) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	copy(out, s.rows)
	return out
}

// Appends counts successful append calls.
func (s *Sheet) Appends() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appends
}
