// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pdiddy/kit-engine/pkg/types"
)

type key struct {
	query  string
	source string
}

// MemoryStore is an in-process Store. Expired entries are invisible to Get
// and evicted when touched.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[key]types.CacheEntry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[key]types.CacheEntry),
	}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, query, source string) (types.CacheEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{query, source}
	e, ok := m.entries[k]
	if !ok {
		return types.CacheEntry{}, false, nil
	}
	if m.now().Sub(e.CreatedAt) >= m.ttl {
		delete(m.entries, k)
		return types.CacheEntry{}, false, nil
	}
	e.Results = append([]types.SearchCandidate(nil), e.Results...)
	return e, true, nil
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, e types.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e = stamp(e, m.now())
	e.Results = append([]types.SearchCandidate(nil), e.Results...)
	m.entries[key{e.Query, e.Source}] = e
	return nil
}

// size returns the number of stored entries, live or not yet evicted.
func (m *MemoryStore) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
