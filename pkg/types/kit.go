// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the kit-engine pipeline:
// task interpretations, kits and their items, search candidates, ranked
// matches, conversation history, and per-stage configuration.
package types

import "github.com/invopop/jsonschema"

// Priority ranks how important a kit item is to the task.
type Priority string

const (
	PriorityEssential   Priority = "essential"
	PriorityRecommended Priority = "recommended"
	PriorityOptional    Priority = "optional"
)

// KitType tags the payload returned by the pipeline.
type KitType string

const (
	KitTypeQuestions KitType = "questions"
	KitTypeFinal     KitType = "final_kit"
)

// IdentifierHints carries strict product identifiers the model could infer.
// Any of them may be absent (null on the wire).
type IdentifierHints struct {
	Brand *string `json:"brand,omitempty" yaml:"brand,omitempty"`
	MPN   *string `json:"mpn,omitempty" yaml:"mpn,omitempty"`
	Model *string `json:"model,omitempty" yaml:"model,omitempty"`
	UPC   *string `json:"upc,omitempty" yaml:"upc,omitempty"`
}

// JSONSchemaExtend allows each identifier to be a string or null, which is
// how models usually express "unknown".
func (IdentifierHints) JSONSchemaExtend(s *jsonschema.Schema) {
	if s.Properties == nil {
		return
	}
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.Type = ""
		pair.Value.AnyOf = []*jsonschema.Schema{{Type: "string"}, {Type: "null"}}
	}
}

// MatchKind records how an item's purchase metadata was chosen.
type MatchKind string

const (
	// MatchRanked means the top ranked candidate was attached.
	MatchRanked MatchKind = "ranked"
	// MatchRawFallback means no candidate ranked above zero and the first
	// raw search result was attached instead.
	MatchRawFallback MatchKind = "raw_fallback"
	// MatchSearchLink means a synthesized shopping-search link was attached.
	MatchSearchLink MatchKind = "search_link"
)

// MatchInfo explains the purchase metadata attached to an item.
type MatchInfo struct {
	Kind       MatchKind `json:"kind" yaml:"kind"`
	Confidence float64   `json:"confidence" yaml:"confidence"`
	Reasons    []string  `json:"reasons,omitempty" yaml:"reasons,omitempty"`
	Source     string    `json:"source,omitempty" yaml:"source,omitempty"`
}

// KitItem is one abstract product in a kit. Purchase metadata (BuyURL,
// Price, ImgURL, Match) is attached once, by the orchestrator, after matching.
type KitItem struct {
	ItemKey            string          `json:"item_key" yaml:"item_key" jsonschema:"required,minLength=1"`
	Name               string          `json:"name" yaml:"name" jsonschema:"required,minLength=1"`
	Description        string          `json:"description,omitempty" yaml:"description,omitempty"`
	SKUType            string          `json:"sku_type,omitempty" yaml:"sku_type,omitempty"`
	SpecsToSearch      []string        `json:"specs_to_search" yaml:"specs_to_search" jsonschema:"required"`
	QueryTerms         []string        `json:"query_terms,omitempty" yaml:"query_terms,omitempty"`
	QuantitySuggestion string          `json:"quantity_suggestion,omitempty" yaml:"quantity_suggestion,omitempty"`
	Priority           Priority        `json:"priority,omitempty" yaml:"priority,omitempty" jsonschema:"enum=essential,enum=recommended,enum=optional"`
	SafetyNotes        []string        `json:"safety_notes,omitempty" yaml:"safety_notes,omitempty"`
	CompatibilityNotes []string        `json:"compatibility_notes,omitempty" yaml:"compatibility_notes,omitempty"`
	IdentifierHints    IdentifierHints `json:"identifier_hints" yaml:"identifier_hints" jsonschema:"required"`

	BuyURL string     `json:"buy_url,omitempty" yaml:"buy_url,omitempty"`
	Price  string     `json:"price,omitempty" yaml:"price,omitempty"`
	ImgURL string     `json:"img_url,omitempty" yaml:"img_url,omitempty"`
	Match  *MatchInfo `json:"match,omitempty" yaml:"match,omitempty"`
}

// HasPurchase reports whether purchase metadata has been attached.
func (it KitItem) HasPurchase() bool {
	return it.BuyURL != ""
}

// KitSection groups related items under a heading.
type KitSection struct {
	Name  string    `json:"name" yaml:"name" jsonschema:"required"`
	Items []KitItem `json:"items" yaml:"items" jsonschema:"required"`
}

// Kit is the structured output of the pipeline.
type Kit struct {
	KitTitle string       `json:"kit_title" yaml:"kit_title" jsonschema:"required,minLength=1"`
	Summary  string       `json:"summary" yaml:"summary" jsonschema:"required"`
	Sections []KitSection `json:"sections" yaml:"sections" jsonschema:"required"`
	Type     KitType      `json:"type,omitempty" yaml:"type,omitempty"`
}

// ItemCount returns the number of items across all sections.
func (k Kit) ItemCount() int {
	n := 0
	for _, s := range k.Sections {
		n += len(s.Items)
	}
	return n
}

// DuplicateItemKeys returns every item_key that appears more than once, in
// order of its second appearance.
func (k Kit) DuplicateItemKeys() []string {
	seen := make(map[string]int)
	var dups []string
	for _, s := range k.Sections {
		for _, it := range s.Items {
			seen[it.ItemKey]++
			if seen[it.ItemKey] == 2 {
				dups = append(dups, it.ItemKey)
			}
		}
	}
	return dups
}
