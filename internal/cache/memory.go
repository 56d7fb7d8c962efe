package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store. Expired entries are dropped lazily on
// read and swept every sweepEvery writes.
type MemoryStore struct {
	now func() time.Time

	mu         sync.RWMutex
	entries    map[string]Entry
	writes     int
	sweepEvery int
}

// NewMemoryStore returns an empty MemoryStore. A nil now uses time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		now:        now,
		entries:    make(map[string]Entry),
		sweepEvery: 256,
	}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, key string) (Entry, error) {
	now := m.now()
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return Entry{}, ErrMiss
	}
	if !e.Live(now) {
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && !cur.Live(now) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return Entry{}, ErrMiss
	}
	return e, nil
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, key string, e Entry) error {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.writes >= m.sweepEvery {
		for k, v := range m.entries {
			if !v.Live(now) {
				delete(m.entries, k)
			}
		}
		m.writes = 0
	}
	m.entries[key] = e
	return nil
}

// Len returns the number of stored entries, live or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
