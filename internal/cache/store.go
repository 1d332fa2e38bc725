// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores search results keyed by (query, source) with a fixed
// retention window. Every backend upserts on Put, so at most one live entry
// exists per key, and expires entries on its own.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/pdiddy/kit-engine/pkg/types"
)

// DefaultTTL is the retention window for cache entries.
const DefaultTTL = 24 * time.Hour

// Store is the search cache boundary.
type Store interface {
	// Get returns the live entry for (query, source). The boolean is false
	// when no entry exists or it has expired.
	Get(ctx context.Context, query, source string) (types.CacheEntry, bool, error)

	// Put inserts or replaces the entry for (e.Query, e.Source). A zero
	// CreatedAt is set to the current time.
	Put(ctx context.Context, e types.CacheEntry) error

	Close() error
}

// Open builds the store selected by cfg.Backend.
func Open(ctx context.Context, cfg types.CacheConfig) (Store, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	switch cfg.Backend {
	case types.CacheMemory, "":
		return NewMemoryStore(ttl), nil
	case types.CacheRedis:
		return NewRedisStore(ctx, cfg.RedisURL, ttl)
	case types.CacheMongo:
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, ttl)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// stamp fills a missing CreatedAt.
func stamp(e types.CacheEntry, now time.Time) types.CacheEntry {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return e
}
