package storage

import (
	"context"
	"sync"
)

// MemoryStorage is an in-memory Storage implementation, useful for tests
// and ephemeral single-process deployments.
type MemoryStorage struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewMemory() *MemoryStorage {
	return &MemoryStorage{snap: Snapshot{}}
}

func (m *MemoryStorage) Close() error { return nil }

func (m *MemoryStorage) Load(ctx context.Context) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.Clone(), nil
}

func (m *MemoryStorage) Save(ctx context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap.Clone()
	return nil
}
