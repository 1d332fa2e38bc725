// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pdiddy/kit-engine/pkg/types"
)

// Defaults for the mongo backend.
const (
	DefaultMongoDatabase   = "kit_engine"
	DefaultMongoCollection = "search_cache"
)

// MongoStore keeps cache entries in a collection with a unique index on
// (query, source) and a TTL index on created_at. The TTL monitor runs about
// once a minute, so Get also filters out entries older than the TTL.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	ttl    time.Duration
}

// NewMongoStore connects to uri and ensures the collection's indexes.
func NewMongoStore(ctx context.Context, uri, database, collection string, ttl time.Duration) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo cache: uri is required")
	}
	if database == "" {
		database = DefaultMongoDatabase
	}
	if collection == "" {
		collection = DefaultMongoCollection
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	s := &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
		ttl:    ttl,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "query", Value: 1}, {Key: "source", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("query_source_unique"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(s.ttl.Seconds())).SetName("created_at_ttl"),
		},
	})
	if err != nil {
		return fmt.Errorf("creating cache indexes: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *MongoStore) Get(ctx context.Context, query, source string) (types.CacheEntry, bool, error) {
	filter := bson.M{
		"query":      query,
		"source":     source,
		"created_at": bson.M{"$gt": time.Now().Add(-s.ttl)},
	}

	var e types.CacheEntry
	err := s.coll.FindOne(ctx, filter).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return types.CacheEntry{}, false, nil
	}
	if err != nil {
		return types.CacheEntry{}, false, fmt.Errorf("reading cache entry: %w", err)
	}
	return e, true, nil
}

// Put implements Store.
func (s *MongoStore) Put(ctx context.Context, e types.CacheEntry) error {
	e = stamp(e, time.Now().UTC())
	if e.Results == nil {
		e.Results = []types.SearchCandidate{}
	}

	_, err := s.coll.UpdateOne(ctx,
		bson.M{"query": e.Query, "source": e.Source},
		bson.M{"$set": bson.M{"results": e.Results, "created_at": e.CreatedAt}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upserting cache entry: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
