// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/kit-engine/internal/errs"
	"github.com/pdiddy/kit-engine/internal/generate/generatetest"
)

type greeting struct {
	Greeting string `json:"greeting" jsonschema:"required,minLength=1"`
	Count    int    `json:"count,omitempty"`
}

var greetingSchema = MustSchemaFor[greeting]("greeting")

func TestGenerateFirstAttempt(t *testing.T) {
	p := &generatetest.Scripted{Replies: []string{`{"greeting":"hi"}`}}
	c := NewClient(p)

	doc, err := c.Generate(context.Background(), Request{
		SystemPrompt: "sys",
		UserPrompt:   "user",
		Schema:       greetingSchema,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"greeting":"hi"}`, string(doc))
	require.Len(t, p.Calls(), 1)
	assert.Equal(t, "sys", p.Calls()[0].System)
	assert.Equal(t, "user", p.Calls()[0].User)
}

func TestGenerateRepairsAfterInvalidJSON(t *testing.T) {
	p := &generatetest.Scripted{Replies: []string{`{"greeting":`, `{"greeting":"hello"}`}}
	c := NewClient(p)

	got, err := GenerateInto[greeting](context.Background(), c, Request{
		SystemPrompt: "sys",
		UserPrompt:   "user",
		Schema:       greetingSchema,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Greeting)

	calls := p.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "sys", calls[0].System)
	assert.True(t, strings.HasPrefix(calls[1].System, "sys\n\nPREVIOUS ATTEMPT FAILED: invalid JSON"))
	assert.Contains(t, calls[1].System, "Please fix the JSON structure and ensure it matches the schema exactly.")
	assert.Equal(t, "user", calls[1].User)
}

func TestGenerateRepairsAfterSchemaViolation(t *testing.T) {
	p := &generatetest.Scripted{Replies: []string{`{"count":3}`, `{"greeting":"ok","count":3}`}}
	c := NewClient(p)

	got, err := GenerateInto[greeting](context.Background(), c, Request{SystemPrompt: "sys", UserPrompt: "u", Schema: greetingSchema})
	require.NoError(t, err)
	assert.Equal(t, greeting{Greeting: "ok", Count: 3}, got)
	assert.Contains(t, p.Calls()[1].System, "schema validation failed")
	assert.Contains(t, p.Calls()[1].System, "greeting is required")
}

func TestGenerateRepairShowsSchemaOnce(t *testing.T) {
	p := &generatetest.Scripted{Replies: []string{`{"count":1}`, `{"count":2}`, `{"greeting":"ok"}`}}
	c := NewClient(p, WithMaxRetries(2))

	_, err := c.Generate(context.Background(), Request{SystemPrompt: "sys", UserPrompt: "u", Schema: greetingSchema})
	require.NoError(t, err)

	calls := p.Calls()
	require.Len(t, calls, 3)
	assert.NotContains(t, calls[0].System, "JSON Schema")
	assert.Contains(t, calls[1].System, string(greetingSchema.JSON()))
	assert.Equal(t, 1, strings.Count(calls[2].System, string(greetingSchema.JSON())))
}

func TestGenerateRepairWithoutSchema(t *testing.T) {
	p := &generatetest.Scripted{Replies: []string{`nope`, `{}`}}
	c := NewClient(p)

	_, err := c.Generate(context.Background(), Request{SystemPrompt: "sys", UserPrompt: "u"})
	require.NoError(t, err)
	assert.NotContains(t, p.Calls()[1].System, "JSON Schema")
}

func TestGenerateExhaustsAttempts(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
		wantCalls  int
	}{
		{"default retries", -1, DefaultMaxRetries + 1},
		{"no retries", 0, 1},
		{"four retries", 4, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &generatetest.Scripted{Replies: []string{`not json`}}
			c := NewClient(p, WithMaxRetries(tt.maxRetries))

			_, err := c.Generate(context.Background(), Request{SystemPrompt: "sys", Schema: greetingSchema})
			require.Error(t, err)

			var ge *errs.GenerationError
			require.True(t, errors.As(err, &ge))
			assert.Equal(t, tt.wantCalls, ge.Attempts)
			assert.Len(t, p.Calls(), tt.wantCalls)

			var ve *errs.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.True(t, ve.Parse)
		})
	}
}

func TestGenerateSystemPromptGrowsMonotonically(t *testing.T) {
	p := &generatetest.Scripted{Replies: []string{`[]`, `{}`, `{"greeting":""}`}}
	c := NewClient(p)

	_, err := c.Generate(context.Background(), Request{SystemPrompt: "sys", Schema: greetingSchema})
	require.Error(t, err)

	calls := p.Calls()
	require.Len(t, calls, 3)
	for i := 1; i < len(calls); i++ {
		assert.True(t, strings.HasPrefix(calls[i].System, calls[i-1].System), "attempt %d", i+1)
		assert.Greater(t, len(calls[i].System), len(calls[i-1].System))
	}
}

func TestGenerateTransportErrorNotRetried(t *testing.T) {
	p := &generatetest.Scripted{Err: context.DeadlineExceeded}
	c := NewClient(p)

	_, err := c.Generate(context.Background(), Request{SystemPrompt: "sys", Schema: greetingSchema})
	require.Error(t, err)
	assert.True(t, errs.IsTransport(err))
	assert.False(t, errs.IsGeneration(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, p.Calls(), 1)
}

func TestGenerateCancelledContext(t *testing.T) {
	p := &generatetest.Scripted{Replies: []string{`{"greeting":"hi"}`}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(p).Generate(ctx, Request{})
	assert.True(t, errs.IsTransport(err))
	assert.Empty(t, p.Calls())
}

func TestGenerateSemanticCheck(t *testing.T) {
	p := &generatetest.Scripted{Replies: []string{`{"greeting":"bad"}`, `{"greeting":"good"}`}}
	check := func(doc json.RawMessage) error {
		var g greeting
		if err := json.Unmarshal(doc, &g); err != nil {
			return err
		}
		if g.Greeting == "bad" {
			return fmt.Errorf("greeting %q is not allowed", g.Greeting)
		}
		return nil
	}

	got, err := GenerateInto[greeting](context.Background(), NewClient(p), Request{
		SystemPrompt: "sys",
		Schema:       greetingSchema,
		Check:        check,
	})
	require.NoError(t, err)
	assert.Equal(t, "good", got.Greeting)
	assert.Contains(t, p.Calls()[1].System, `greeting "bad" is not allowed`)
}

func TestGenerateStructuredPrompts(t *testing.T) {
	p := &generatetest.Scripted{Replies: []string{`{"greeting":"hi"}`}}
	_, err := NewClient(p).Generate(context.Background(), Request{
		SystemPrompt: "sys",
		UserPrompt:   map[string]any{"user_text": "camping", "history": []string{}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_text":"camping","history":[]}`, p.Calls()[0].User)
}

func TestStripFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"padded", "  {\"a\":1}\n", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFence(tt.in))
		})
	}
}

func TestGenerateAcceptsFencedJSON(t *testing.T) {
	p := &generatetest.Scripted{Replies: []string{"```json\n{\"greeting\":\"hi\"}\n```"}}
	got, err := GenerateInto[greeting](context.Background(), NewClient(p), Request{Schema: greetingSchema})
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Greeting)
	assert.Len(t, p.Calls(), 1)
}
