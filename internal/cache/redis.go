// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pdiddy/kit-engine/pkg/types"
)

const redisKeyPrefix = "search_cache"

// RedisStore keeps one JSON value per (query, source). SET with EX replaces
// any previous value and lets Redis expire it.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to url and verifies the connection.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	if url == "" {
		return nil, errors.New("redis cache: url is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedisStoreFromClient(client, ttl), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(query, source string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, source, query)
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, query, source string) (types.CacheEntry, bool, error) {
	raw, err := r.client.Get(ctx, redisKey(query, source)).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.CacheEntry{}, false, nil
	}
	if err != nil {
		return types.CacheEntry{}, false, fmt.Errorf("reading cache entry: %w", err)
	}

	var e types.CacheEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return types.CacheEntry{}, false, fmt.Errorf("decoding cache entry: %w", err)
	}
	return e, true, nil
}

// Put implements Store.
func (r *RedisStore) Put(ctx context.Context, e types.CacheEntry) error {
	e = stamp(e, time.Now())
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(e.Query, e.Source), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Close implements Store.
func (r *RedisStore) Close() error { return r.client.Close() }
