// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query turns abstract kit items into search queries and strict-match
// fingerprints. It is pure: no I/O, no randomness, total over its inputs.
package query

import (
	"strings"

	"github.com/pdiddy/kit-engine/pkg/types"
)

const (
	cleanSpecs       = 3
	expansionTerms   = 5
	fingerprintSpecs = 5
)

// Build derives the search plan for one item.
//
// CleanQuery is the item name followed by its first three specs.
// ExpandedQuery appends up to five synonym query terms to CleanQuery.
// The fingerprint copies the identifier hints and the first five specs as
// must-have tokens.
func Build(item types.KitItem) types.QueryPlan {
	clean := join(item.Name, head(item.SpecsToSearch, cleanSpecs)...)
	expanded := join(clean, head(item.QueryTerms, expansionTerms)...)

	return types.QueryPlan{
		ItemKey:       item.ItemKey,
		CleanQuery:    clean,
		ExpandedQuery: expanded,
		Fingerprint: types.Fingerprint{
			Brand:          item.IdentifierHints.Brand,
			MPN:            item.IdentifierHints.MPN,
			Model:          item.IdentifierHints.Model,
			UPC:            item.IdentifierHints.UPC,
			MustHaveTokens: append([]string{}, head(item.SpecsToSearch, fingerprintSpecs)...),
		},
	}
}

// BuildAll returns one plan per item, in section then item order.
func BuildAll(kit types.Kit) []types.QueryPlan {
	plans := make([]types.QueryPlan, 0, kit.ItemCount())
	for _, s := range kit.Sections {
		for _, it := range s.Items {
			plans = append(plans, Build(it))
		}
	}
	return plans
}

func head(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}

// join concatenates base and parts with single spaces, skipping blanks.
func join(base string, parts ...string) string {
	words := make([]string, 0, len(parts)+1)
	if s := strings.TrimSpace(base); s != "" {
		words = append(words, s)
	}
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			words = append(words, s)
		}
	}
	return strings.Join(words, " ")
}
