// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/kit-engine/internal/httputil"
	"github.com/pdiddy/kit-engine/pkg/types"
)

// serperEndpoint is the Serper Google Shopping endpoint. Declared as a var
// so tests can substitute an httptest server.
var serperEndpoint = "https://google.serper.dev/shopping"

const (
	// DefaultMaxResults caps the candidates taken from one response.
	DefaultMaxResults = 8

	defaultSerperSource = "google_shopping"
)

// SerperSource queries Google Shopping through the Serper API.
type SerperSource struct {
	Client       *http.Client
	APIKey       string
	Endpoint     string
	UserAgent    string
	MaxResults   int
	RetriesOn429 int
}

// NewSerperSource builds a source from the search configuration.
func NewSerperSource(cfg types.SearchConfig) *SerperSource {
	return &SerperSource{
		Client:       &http.Client{},
		APIKey:       cfg.APIKey,
		Endpoint:     cfg.Endpoint,
		UserAgent:    cfg.UserAgent,
		MaxResults:   cfg.MaxResults,
		RetriesOn429: cfg.RetriesOn429,
	}
}

// Name returns the source identifier used in cache keys.
func (s *SerperSource) Name() string { return "serper" }

type serperRequest struct {
	Q string `json:"q"`
}

type serperResponse struct {
	Shopping []serperItem `json:"shopping"`
}

type serperItem struct {
	Title    string `json:"title"`
	Source   string `json:"source"`
	Link     string `json:"link"`
	Price    string `json:"price"`
	ImageURL string `json:"imageUrl"`
}

// Search posts the query and maps the first MaxResults shopping entries.
func (s *SerperSource) Search(ctx context.Context, query string) ([]types.SearchCandidate, error) {
	if s.APIKey == "" {
		return nil, errors.New("serper API key is not configured")
	}

	body, err := json.Marshal(serperRequest{Q: query})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = serperEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.APIKey)
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, s.RetriesOn429)
	if err != nil {
		return nil, fmt.Errorf("Serper API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("Serper API returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var sr serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Serper response: %w", err)
	}

	limit := s.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	items := sr.Shopping
	if len(items) > limit {
		items = items[:limit]
	}

	results := make([]types.SearchCandidate, 0, len(items))
	for _, it := range items {
		source := it.Source
		if source == "" {
			source = defaultSerperSource
		}
		results = append(results, types.SearchCandidate{
			Title:  it.Title,
			Price:  it.Price,
			ImgURL: it.ImageURL,
			URL:    it.Link,
			Source: source,
		})
	}
	return results, nil
}
