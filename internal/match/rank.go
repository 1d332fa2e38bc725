// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match scores search candidates against a kit item and orders them
// by confidence. Scoring runs through an ordered list of tiers; the first
// tier that yields a positive confidence decides a candidate's score.
package match

import (
	"sort"

	"github.com/pdiddy/kit-engine/pkg/types"
)

// DefaultTiers is the production tier order: exact identifiers before fuzzy
// titles.
func DefaultTiers() []Tier {
	return []Tier{IdentifierMatch{}, TitleSimilarityMatch{}}
}

// Ranker scores candidates through an ordered tier list.
type Ranker struct {
	tiers []Tier
}

// NewRanker returns a Ranker evaluating tiers in the given order. With no
// tiers it uses DefaultTiers.
func NewRanker(tiers ...Tier) *Ranker {
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	return &Ranker{tiers: tiers}
}

// Rank scores every candidate against item, drops those scoring zero, and
// sorts the rest by descending confidence. Equal confidences keep their
// input order.
func (r *Ranker) Rank(item types.KitItem, candidates []types.SearchCandidate) []types.RankedMatch {
	subject := NewSubject(item)

	ranked := make([]types.RankedMatch, 0, len(candidates))
	for _, raw := range candidates {
		c := NewCandidate(raw)
		for _, tier := range r.tiers {
			score, reasons := tier.Score(subject, c)
			if score <= 0 {
				continue
			}
			ranked = append(ranked, types.RankedMatch{
				Candidate:  raw,
				Confidence: score,
				Reasons:    reasons,
				Tier:       tier.Name(),
			})
			break
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})
	return ranked
}

// Rank ranks candidates with the default tiers.
func Rank(item types.KitItem, candidates []types.SearchCandidate) []types.RankedMatch {
	return NewRanker().Rank(item, candidates)
}
