// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SearchCandidate is a purchasable product returned by a search source.
// Candidates are never modified after the aggregator creates them.
type SearchCandidate struct {
	Title  string `json:"title" yaml:"title" bson:"title"`
	Price  string `json:"price,omitempty" yaml:"price,omitempty" bson:"price,omitempty"`
	ImgURL string `json:"img_url,omitempty" yaml:"img_url,omitempty" bson:"img_url,omitempty"`
	URL    string `json:"url" yaml:"url" bson:"url"`
	Source string `json:"source" yaml:"source" bson:"source"`
}

// CacheEntry is one cached search response, keyed by (Query, Source).
// The storage layer expires it TTL after CreatedAt.
type CacheEntry struct {
	Query     string            `json:"query" bson:"query"`
	Source    string            `json:"source" bson:"source"`
	Results   []SearchCandidate `json:"results" bson:"results"`
	CreatedAt time.Time         `json:"created_at" bson:"created_at"`
}

// Fingerprint bundles the strict identifiers used by exact-match tiers.
type Fingerprint struct {
	Brand          *string  `json:"brand" yaml:"brand"`
	MPN            *string  `json:"mpn" yaml:"mpn"`
	Model          *string  `json:"model" yaml:"model"`
	UPC            *string  `json:"upc" yaml:"upc"`
	MustHaveTokens []string `json:"must_have_tokens" yaml:"must_have_tokens"`
}

// QueryPlan is the deterministic search plan derived from a kit item.
type QueryPlan struct {
	ItemKey       string      `json:"item_key" yaml:"item_key"`
	CleanQuery    string      `json:"clean_query" yaml:"clean_query"`
	ExpandedQuery string      `json:"expanded_query" yaml:"expanded_query"`
	Fingerprint   Fingerprint `json:"strict_match_fingerprint" yaml:"strict_match_fingerprint"`
}

// RankedMatch pairs a candidate with its confidence against a kit item.
type RankedMatch struct {
	Candidate  SearchCandidate `json:"candidate" yaml:"candidate"`
	Confidence float64         `json:"confidence" yaml:"confidence"`
	Reasons    []string        `json:"reasons" yaml:"reasons"`
	Tier       string          `json:"tier,omitempty" yaml:"tier,omitempty"`
}
