// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search resolves product queries to deduplicated shopping
// candidates. Outbound calls are rate limited and cached per (query,
// source); a failing source contributes no results instead of an error.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/pdiddy/kit-engine/internal/cache"
	"github.com/pdiddy/kit-engine/internal/httputil"
	"github.com/pdiddy/kit-engine/internal/normalize"
	"github.com/pdiddy/kit-engine/pkg/types"
)

// Defaults for the aggregator.
const (
	DefaultMinInterval = 500 * time.Millisecond
	DefaultTimeout     = 10 * time.Second
)

// Source searches one shopping provider. Each provider implements this
// interface per the Strategy pattern.
type Source interface {
	Name() string
	Search(ctx context.Context, query string) ([]types.SearchCandidate, error)
}

// Aggregator fans a query out to its sources. It is safe for concurrent use:
// the limiter and the cache store are shared by every caller.
type Aggregator struct {
	sources []Source
	store   cache.Store
	limiter *rate.Limiter
	flights singleflight.Group
	timeout time.Duration
	logger  *zap.Logger
}

// NewAggregator returns an Aggregator over sources. A nil store disables
// caching. cfg supplies MinInterval and Timeout.
func NewAggregator(sources []Source, store cache.Store, cfg types.SearchConfig, logger *zap.Logger) *Aggregator {
	interval := cfg.MinInterval
	if interval <= 0 {
		interval = DefaultMinInterval
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		sources: sources,
		store:   store,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		timeout: timeout,
		logger:  logger,
	}
}

// Search returns candidates from every source for query, deduplicated by
// normalized title with the first occurrence kept. It never fails; sources
// that error are logged and skipped.
func (a *Aggregator) Search(ctx context.Context, query string) []types.SearchCandidate {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	var all []types.SearchCandidate
	for _, src := range a.sources {
		all = append(all, a.fromSource(ctx, src, query)...)
	}
	return Deduplicate(all)
}

// fromSource serves one (query, source) pair from the cache or, on a miss,
// from a single rate-limited outbound call shared by concurrent callers.
func (a *Aggregator) fromSource(ctx context.Context, src Source, query string) []types.SearchCandidate {
	name := src.Name()
	log := a.logger.With(zap.String("source", name), zap.String("query", query))

	if results, ok := a.cached(ctx, name, query); ok {
		log.Debug("search cache hit", zap.Int("results", len(results)))
		return results
	}

	v, err, shared := a.flights.Do(name+"\x00"+query, func() (any, error) {
		// A flight that finished between our cache miss and this call has
		// already stored its results.
		if results, ok := a.cached(ctx, name, query); ok {
			return results, nil
		}
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}

		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		// Retries after a 429 wait on the same limiter as first attempts.
		callCtx = httputil.WithPacer(callCtx, a.limiter.Wait)

		start := time.Now()
		results, err := src.Search(callCtx, query)
		if err != nil {
			return nil, err
		}
		log.Debug("search call completed",
			zap.Int("results", len(results)),
			zap.Duration("elapsed", time.Since(start)))

		if a.store != nil {
			entry := types.CacheEntry{Query: query, Source: name, Results: results, CreatedAt: time.Now().UTC()}
			if err := a.store.Put(ctx, entry); err != nil {
				log.Warn("writing search cache", zap.Error(err))
			}
		}
		return results, nil
	})
	if err != nil {
		log.Warn("search source failed", zap.Error(err))
		return nil
	}
	if shared {
		log.Debug("search call shared with concurrent caller")
	}
	return v.([]types.SearchCandidate)
}

func (a *Aggregator) cached(ctx context.Context, source, query string) ([]types.SearchCandidate, bool) {
	if a.store == nil {
		return nil, false
	}
	e, ok, err := a.store.Get(ctx, query, source)
	if err != nil {
		a.logger.Warn("reading search cache", zap.String("source", source), zap.Error(err))
		return nil, false
	}
	return e.Results, ok
}

// Deduplicate keeps the first candidate for each normalized title,
// preserving order. Candidates whose title normalizes to nothing are
// dropped since nothing can be matched against them.
func Deduplicate(candidates []types.SearchCandidate) []types.SearchCandidate {
	seen := make(map[string]bool, len(candidates))
	out := make([]types.SearchCandidate, 0, len(candidates))
	for _, c := range candidates {
		k := normalize.String(c.Title)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}

// FormatTable writes candidates as a human-readable table to w.
func FormatTable(results []types.SearchCandidate, w io.Writer) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-10s  %-18s  %s\n", "Rank", "Title", "Price", "Source", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for i, r := range results {
		fmt.Fprintf(w, "%-4d  %-60s  %-10s  %-18s  %s\n",
			i+1, truncate(r.Title, 60), truncate(r.Price, 10), truncate(r.Source, 18), r.URL)
	}
	fmt.Fprintf(w, "\n%d results\n", len(results))
}

// FormatJSON writes candidates as indented JSON to w.
func FormatJSON(results []types.SearchCandidate, w io.Writer) error {
	if results == nil {
		results = []types.SearchCandidate{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
