// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"strings"

	"github.com/pdiddy/kit-engine/internal/normalize"
	"github.com/pdiddy/kit-engine/pkg/types"
)

// Tier names recorded on RankedMatch.Tier.
const (
	TierIdentifier      = "identifier"
	TierTitleSimilarity = "title_similarity"
)

// Reasons attached to ranked matches.
const (
	ReasonExactUPC         = "Exact UPC Match"
	ReasonExactMPN         = "Exact MPN Match"
	ReasonExactModel       = "Exact Model Match"
	ReasonBrand            = "Brand Match"
	ReasonDirectKeyword    = "Direct Keyword Match"
	ReasonHighSimilarity   = "High Title Similarity with Specs Found"
	ReasonMediumSimilarity = "Medium Title Similarity with Specs Found"
	ReasonFairSimilarity   = "Fair Title Similarity"
	ReasonLowSimilarity    = "Low Title Similarity"
)

// minIdentifierLen is the shortest normalized identifier trusted for an
// exact match; shorter ones collide with ordinary title words.
const minIdentifierLen = 4

// Subject is a kit item prepared for scoring. Build it once per item with
// NewSubject; it is read-only afterwards.
type Subject struct {
	Name  string
	Specs []string
	Brand string
	MPN   string
	Model string
	UPC   string
}

// NewSubject normalizes the fields of item that tiers compare against.
func NewSubject(item types.KitItem) Subject {
	h := item.IdentifierHints
	return Subject{
		Name:  normalize.String(item.Name),
		Specs: normalize.All(item.SpecsToSearch),
		Brand: normalize.String(deref(h.Brand)),
		MPN:   normalize.String(deref(h.MPN)),
		Model: normalize.String(deref(h.Model)),
		UPC:   digits(deref(h.UPC)),
	}
}

// Candidate is a search result prepared for scoring.
type Candidate struct {
	Raw    types.SearchCandidate
	Title  string
	tokens []string
}

// NewCandidate normalizes c's title.
func NewCandidate(c types.SearchCandidate) Candidate {
	title := normalize.String(c.Title)
	return Candidate{Raw: c, Title: title, tokens: strings.Fields(title)}
}

// Tier is one scoring strategy. Score returns a confidence in [0, 1] and
// the reasons behind it; zero means the tier has no opinion.
type Tier interface {
	Name() string
	Score(s Subject, c Candidate) (float64, []string)
}

// IdentifierMatch scores exact identifier hits: UPC, then MPN, then model.
// It outranks every title-similarity score.
type IdentifierMatch struct{}

// Name implements Tier.
func (IdentifierMatch) Name() string { return TierIdentifier }

// Score implements Tier.
func (IdentifierMatch) Score(s Subject, c Candidate) (float64, []string) {
	var (
		score  float64
		reason string
	)
	switch {
	case len(s.UPC) >= minIdentifierLen && hasUPC(c.tokens, s.UPC):
		score, reason = 0.99, ReasonExactUPC
	case len(s.MPN) >= minIdentifierLen && containsPhrase(c.tokens, s.MPN):
		score, reason = 0.97, ReasonExactMPN
	case len(s.Model) >= minIdentifierLen && containsPhrase(c.tokens, s.Model):
		score, reason = 0.95, ReasonExactModel
	default:
		return 0, nil
	}

	reasons := []string{reason}
	if s.Brand != "" && containsPhrase(c.tokens, s.Brand) {
		reasons = append(reasons, ReasonBrand)
	}
	return score, reasons
}

// TitleSimilarityMatch scores fuzzy agreement between the item name and the
// candidate title, boosted by how many item specs the title mentions.
type TitleSimilarityMatch struct{}

// Name implements Tier.
func (TitleSimilarityMatch) Name() string { return TierTitleSimilarity }

// Score implements Tier.
func (TitleSimilarityMatch) Score(s Subject, c Candidate) (float64, []string) {
	if s.Name == "" || c.Title == "" {
		return 0, nil
	}

	sim := Similarity(s.Name, c.Title)
	if sim < 0.30 {
		return 0, nil
	}

	specsFound := 0
	for _, spec := range s.Specs {
		if strings.Contains(c.Title, spec) {
			specsFound++
		}
	}

	switch {
	case strings.Contains(c.Title, s.Name):
		return 0.85, []string{ReasonDirectKeyword}
	case sim > 0.85 && specsFound > 0:
		return 0.90, []string{ReasonHighSimilarity}
	case sim > 0.80 && specsFound >= 1:
		return 0.75, []string{ReasonMediumSimilarity}
	case sim > 0.75:
		return 0.60, []string{ReasonFairSimilarity}
	case sim > 0.70:
		return 0.40, []string{ReasonLowSimilarity}
	default:
		return 0, nil
	}
}

// containsPhrase reports whether the space-separated tokens of phrase occur
// contiguously in tokens.
func containsPhrase(tokens []string, phrase string) bool {
	want := strings.Fields(phrase)
	if len(want) == 0 || len(want) > len(tokens) {
		return false
	}
	for i := 0; i+len(want) <= len(tokens); i++ {
		match := true
		for j, w := range want {
			if tokens[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// hasUPC reports whether any all-digit title token equals upc once leading
// zeros are dropped.
func hasUPC(tokens []string, upc string) bool {
	for _, t := range tokens {
		if t == "" || strings.Trim(t, "0123456789") != "" {
			continue
		}
		if strings.TrimLeft(t, "0") == upc {
			return true
		}
	}
	return false
}

// digits keeps only ASCII digits and drops leading zeros, so UPC-A and
// EAN-13 renderings of the same code compare equal.
func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return strings.TrimLeft(b.String(), "0")
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
