package settings

import (
	"context"
	"sync"
)

// MemoryStore keeps the aggregate in process memory. Used when no database
// DSN is configured; contents do not survive a restart.
type MemoryStore struct {
	mu        sync.RWMutex
	aggregate *SettingsAndAlerts
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored aggregate, or ErrNotFound before the first Save.
func (m *MemoryStore) Load(ctx context.Context) (SettingsAndAlerts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.aggregate == nil {
		return SettingsAndAlerts{}, ErrNotFound
	}
	return *m.aggregate, nil
}

// Save replaces the stored aggregate wholesale.
func (m *MemoryStore) Save(ctx context.Context, aggregate SettingsAndAlerts) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aggregate = &aggregate
	return nil
}

var _ Store = (*MemoryStore)(nil)
