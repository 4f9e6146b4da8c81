package storage

import (
	"context"
	"sync"

	"glow/internal/core"
)

// Memory keeps snapshots in process memory. Nothing survives a restart.
type Memory struct {
	mu    sync.Mutex
	items map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

func (m *Memory) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.items[key]
	if !ok {
		return nil, core.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Write(_ context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return unavailable("write", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = append([]byte(nil), data...)
	return nil
}
