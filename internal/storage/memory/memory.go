// Package memory provides an in-process ledger backend, used by tests and
// ephemeral servers.
package memory

import (
	"context"
	"sync"

	"github.com/mmynk/groupbuy/internal/storage"
)

// Ensure Backend implements storage.Backend
var _ storage.Backend = (*Backend)(nil)

// Backend is a mutex-guarded map of versioned records.
type Backend struct {
	mu   sync.RWMutex
	data map[string]storage.Record
}

// New returns an empty in-memory backend.
func New() *Backend {
	return &Backend{
		data: make(map[string]storage.Record),
	}
}

// Load returns the current record for key.
func (b *Backend) Load(_ context.Context, key string) (storage.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data[key], nil
}

// Commit validates the read set and applies the writes under one lock.
func (b *Backend) Commit(_ context.Context, cs *storage.ChangeSet) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, version := range cs.Reads {
		if b.data[key].Version != version {
			return storage.ErrConflict
		}
	}
	for _, w := range cs.Writes {
		b.data[w.Key] = storage.Record{
			Value:   w.Value,
			Version: b.data[w.Key].Version + 1,
		}
	}
	return nil
}

// Close satisfies storage.Backend. Nothing to release for a map.
func (b *Backend) Close() error {
	return nil
}
