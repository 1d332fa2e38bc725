// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package clarify

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

func newGate(replies ...string) (*Gate, *generatetest.Scripted) {
	p := &generatetest.Scripted{Replies: replies}
	return NewGate(generate.NewClient(p), nil), p
}

func TestDecideNeedsClarification(t *testing.T) {
	g, _ := newGate(`{"need_clarification": true, "questions": ["How many people?", "  ", "What season?"]}`)

	out, err := g.Decide(context.Background(), "I want to go camping", "", "")
	require.NoError(t, err)

	nc, ok := out.(NeedsClarification)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, []string{"How many people?", "What season?"}, nc.Questions)
}

func TestDecideProceed(t *testing.T) {
	g, _ := newGate(`{
		"need_clarification": false,
		"task_interpretation": {
			"domain": "camping",
			"goals": ["weekend trip for two"],
			"constraints": ["budget $300"]
		}
	}`)

	out, err := g.Decide(context.Background(), "camping for two, $300", "", "")
	require.NoError(t, err)

	p, ok := out.(Proceed)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, types.TaskInterpretation{
		Domain:      "camping",
		Goals:       []string{"weekend trip for two"},
		Constraints: []string{"budget $300"},
	}, p.Task)
}

func TestDecideSchemaConditionals(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		valid bool
	}{
		{"asking without questions", `{"need_clarification": true}`, false},
		{"asking with empty questions", `{"need_clarification": true, "questions": []}`, false},
		{"asking with too many questions", `{"need_clarification": true, "questions": ["a","b","c","d"]}`, false},
		{"proceeding without interpretation", `{"need_clarification": false}`, false},
		{"interpretation missing goals", `{"need_clarification": false, "task_interpretation": {"domain": "x"}}`, false},
		{"missing flag", `{"questions": ["a"]}`, false},
		{"proceeding with empty questions", `{"need_clarification": false, "questions": [], "task_interpretation": {"domain": "x", "goals": []}}`, true},
		{"asking with one question", `{"need_clarification": true, "questions": ["a"]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gateSchema.Validate([]byte(tt.reply))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDecideRepairsInvalidReply(t *testing.T) {
	g, p := newGate(
		`{"need_clarification": true}`,
		`{"need_clarification": true, "questions": ["Indoor or outdoor?"]}`,
	)

	out, err := g.Decide(context.Background(), "paint a room", "", "")
	require.NoError(t, err)
	assert.Equal(t, NeedsClarification{Questions: []string{"Indoor or outdoor?"}}, out)
	assert.Len(t, p.Calls(), 2)
}

func TestDecideGenerationFailure(t *testing.T) {
	g, p := newGate(`{"need_clarification": "maybe"}`)

	_, err := g.Decide(context.Background(), "paint a room", "", "")
	require.Error(t, err)
	assert.True(t, errs.IsGeneration(err))
	assert.Len(t, p.Calls(), generate.DefaultMaxRetries+1)
}

func TestDecidePromptCarriesContext(t *testing.T) {
	g, p := newGate(`{"need_clarification": true, "questions": ["q"]}`)

	history := types.History{{Question: "How many people?", Answer: "Two"}}.Render()
	_, err := g.Decide(context.Background(), "camping trip", history, "prefer REI brands")
	require.NoError(t, err)

	call := p.Calls()[0]
	assert.Equal(t, "camping trip", call.User)
	assert.Contains(t, call.System, "User request:\ncamping trip")
	assert.Contains(t, call.System, "Q: How many people?\nA: Two")
	assert.Contains(t, call.System, "prefer REI brands")
}

func TestRenderPromptOmitsEmptySections(t *testing.T) {
	got, err := renderPrompt("fix a bike", "", "")
	require.NoError(t, err)
	assert.NotContains(t, got, "Conversation so far")
	assert.NotContains(t, got, "User preferences")
}
