// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/kit-engine/pkg/types"
)

func TestMemoryStoreGetPut(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	_, ok, err := s.Get(ctx, "tent", "google_shopping")
	require.NoError(t, err)
	assert.False(t, ok)

	results := []types.SearchCandidate{{Title: "Tent", URL: "https://a"}}
	require.NoError(t, s.Put(ctx, types.CacheEntry{Query: "tent", Source: "google_shopping", Results: results}))

	e, ok, err := s.Get(ctx, "tent", "google_shopping")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, results, e.Results)
	assert.False(t, e.CreatedAt.IsZero())

	_, ok, _ = s.Get(ctx, "tent", "other_source")
	assert.False(t, ok, "source is part of the key")
}

func TestMemoryStoreUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	require.NoError(t, s.Put(ctx, types.CacheEntry{Query: "q", Source: "s", Results: []types.SearchCandidate{{Title: "old"}}}))
	require.NoError(t, s.Put(ctx, types.CacheEntry{Query: "q", Source: "s", Results: []types.SearchCandidate{{Title: "new"}}}))

	assert.Equal(t, 1, s.size())
	e, ok, err := s.Get(ctx, "q", "s")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", e.Results[0].Title)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(24 * time.Hour)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, types.CacheEntry{Query: "q", Source: "s"}))

	now = now.Add(23*time.Hour + 59*time.Minute)
	_, ok, _ := s.Get(ctx, "q", "s")
	assert.True(t, ok, "entry is live just before the window closes")

	now = now.Add(time.Minute)
	_, ok, _ = s.Get(ctx, "q", "s")
	assert.False(t, ok, "entry expires after 24h")
	assert.Equal(t, 0, s.size(), "expired entry is evicted")
}

func TestMemoryStoreEmptyResultsAreLive(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	require.NoError(t, s.Put(ctx, types.CacheEntry{Query: "nothing", Source: "s"}))
	e, ok, err := s.Get(ctx, "nothing", "s")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, e.Results)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)
	results := []types.SearchCandidate{{Title: "a"}}
	require.NoError(t, s.Put(ctx, types.CacheEntry{Query: "q", Source: "s", Results: results}))

	results[0].Title = "mutated"
	e, _, _ := s.Get(ctx, "q", "s")
	e.Results[0].Title = "mutated again"

	again, _, _ := s.Get(ctx, "q", "s")
	assert.Equal(t, "a", again.Results[0].Title)
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Put(ctx, types.CacheEntry{Query: "q", Source: "s"})
			_, _, _ = s.Get(ctx, "q", "s")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, s.size())
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.CacheConfig
		wantErr bool
	}{
		{"default is memory", types.CacheConfig{}, false},
		{"memory", types.CacheConfig{Backend: types.CacheMemory}, false},
		{"redis without url", types.CacheConfig{Backend: types.CacheRedis}, true},
		{"mongo without uri", types.CacheConfig{Backend: types.CacheMongo}, true},
		{"unknown", types.CacheConfig{Backend: "etcd"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(context.Background(), tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			_, isMemory := s.(*MemoryStore)
			assert.True(t, isMemory)
			assert.NoError(t, s.Close())
		})
	}
}

func TestRedisKey(t *testing.T) {
	assert.Equal(t, "search_cache:google_shopping:camp stove", redisKey("camp stove", "google_shopping"))
}
