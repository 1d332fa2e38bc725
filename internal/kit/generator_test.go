// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package kit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/kit-engine/internal/errs"
	"github.com/pdiddy/kit-engine/internal/generate"
	"github.com/pdiddy/kit-engine/internal/generate/generatetest"
	"github.com/pdiddy/kit-engine/pkg/types"
)

const tentKit = `{
	"kit_title": "Weekend Camping Kit",
	"summary": "Shelter and sleep for two.",
	"type": "final_kit",
	"sections": [
		{"name": "Shelter", "items": [
			{
				"item_key": "tent",
				"name": "Lightweight Tent",
				"specs_to_search": ["2-person", "waterproof"],
				"query_terms": ["backpacking tent"],
				"priority": "essential",
				"safety_notes": ["Ventilate", "Ventilate", " "],
				"compatibility_notes": ["fits footprint"],
				"identifier_hints": {"brand": "MSR", "mpn": null, "model": null, "upc": null}
			}
		]},
		{"name": "Sleep", "items": [
			{
				"item_key": "bag",
				"name": "Sleeping Bag",
				"specs_to_search": ["30F"],
				"identifier_hints": {}
			}
		]}
	]
}`

func newGenerator(replies ...string) (*Generator, *generatetest.Scripted) {
	p := &generatetest.Scripted{Replies: replies}
	return NewGenerator(generate.NewClient(p), nil), p
}

func TestBuild(t *testing.T) {
	g, p := newGenerator(tentKit)

	k, err := g.Build(context.Background(), Task{Text: "camping for two"}, "Q: Season?\nA: Summer", "")
	require.NoError(t, err)

	assert.Equal(t, "Weekend Camping Kit", k.KitTitle)
	assert.Empty(t, k.Type, "type is set by the pipeline after matching")
	require.Len(t, k.Sections, 2)
	tent := k.Sections[0].Items[0]
	assert.Equal(t, []string{"Ventilate"}, tent.SafetyNotes)
	assert.Equal(t, []string{"fits footprint"}, tent.CompatibilityNotes)
	require.NotNil(t, tent.IdentifierHints.Brand)
	assert.Equal(t, "MSR", *tent.IdentifierHints.Brand)
	assert.Nil(t, tent.IdentifierHints.MPN)
	assert.False(t, tent.HasPurchase())

	call := p.Calls()[0]
	assert.Equal(t, "camping for two", call.User)
	assert.Contains(t, call.System, "Clarifications:\nQ: Season?\nA: Summer")
}

func TestBuildStructuredTask(t *testing.T) {
	g, p := newGenerator(tentKit)

	task := Task{Interpretation: &types.TaskInterpretation{Domain: "camping", Goals: []string{"sleep outdoors"}}}
	_, err := g.Build(context.Background(), task, "", "ultralight")
	require.NoError(t, err)

	call := p.Calls()[0]
	assert.JSONEq(t, `{"domain":"camping","goals":["sleep outdoors"]}`, call.User)
	assert.Contains(t, call.System, "User preferences:\nultralight")
	assert.NotContains(t, call.System, "Clarifications:")
}

func TestBuildRepairsDuplicateItemKeys(t *testing.T) {
	dup := `{"kit_title": "K", "summary": "S", "sections": [{"name": "A", "items": [
		{"item_key": "x", "name": "One", "specs_to_search": [], "identifier_hints": {}},
		{"item_key": "x", "name": "Two", "specs_to_search": [], "identifier_hints": {}}
	]}]}`
	g, p := newGenerator(dup, tentKit)

	k, err := g.Build(context.Background(), Task{Text: "t"}, "", "")
	require.NoError(t, err)
	assert.Equal(t, "Weekend Camping Kit", k.KitTitle)
	require.Len(t, p.Calls(), 2)
	assert.Contains(t, p.Calls()[1].System, "duplicated: x")
}

func TestKitSchema(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		valid bool
	}{
		{"complete", tentKit, true},
		{"missing kit_title", `{"summary": "s", "sections": []}`, false},
		{"missing sections", `{"kit_title": "k", "summary": "s"}`, false},
		{"item missing identifier_hints", `{"kit_title": "k", "summary": "s", "sections": [{"name": "a", "items": [{"item_key": "x", "name": "n", "specs_to_search": []}]}]}`, false},
		{"item empty name", `{"kit_title": "k", "summary": "s", "sections": [{"name": "a", "items": [{"item_key": "x", "name": "", "specs_to_search": [], "identifier_hints": {}}]}]}`, false},
		{"bad priority", `{"kit_title": "k", "summary": "s", "sections": [{"name": "a", "items": [{"item_key": "x", "name": "n", "priority": "urgent", "specs_to_search": [], "identifier_hints": {}}]}]}`, false},
		{"numeric upc", `{"kit_title": "k", "summary": "s", "sections": [{"name": "a", "items": [{"item_key": "x", "name": "n", "specs_to_search": [], "identifier_hints": {"upc": 123}}]}]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := kitSchema.Validate([]byte(tt.doc))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestBuildTransportFailure(t *testing.T) {
	p := &generatetest.Scripted{Err: context.DeadlineExceeded}
	g := NewGenerator(generate.NewClient(p), nil)

	_, err := g.Build(context.Background(), Task{Text: "t"}, "", "")
	require.Error(t, err)
	assert.True(t, errs.IsTransport(err))
}

func TestTaskString(t *testing.T) {
	assert.Equal(t, "raw text", Task{Text: "raw text"}.String())
	assert.JSONEq(t, `{"domain":"d","goals":["g"]}`,
		Task{Interpretation: &types.TaskInterpretation{Domain: "d", Goals: []string{"g"}}, Text: "ignored"}.String())
}
