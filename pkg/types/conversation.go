// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TaskInterpretation is the gate's structured reading of an accepted request.
type TaskInterpretation struct {
	Domain               string   `json:"domain" yaml:"domain" jsonschema:"required,minLength=1"`
	Goals                []string `json:"goals" yaml:"goals" jsonschema:"required"`
	Assumptions          []string `json:"assumptions,omitempty" yaml:"assumptions,omitempty"`
	Constraints          []string `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	SafetyConsiderations []string `json:"safety_considerations,omitempty" yaml:"safety_considerations,omitempty"`
	BestPracticeNotes    []string `json:"best_practice_notes,omitempty" yaml:"best_practice_notes,omitempty"`
}

// ConversationTurn is either a role/content message or a question/answer
// pair from a clarification round.
type ConversationTurn struct {
	Role     Role   `json:"role,omitempty" yaml:"role,omitempty"`
	Content  string `json:"content,omitempty" yaml:"content,omitempty"`
	Question string `json:"question,omitempty" yaml:"question,omitempty"`
	Answer   string `json:"answer,omitempty" yaml:"answer,omitempty"`
}

// IsQA reports whether the turn is a question/answer pair.
func (t ConversationTurn) IsQA() bool {
	return t.Question != "" || t.Answer != ""
}

// Render formats a single turn for replay into a prompt.
func (t ConversationTurn) Render() string {
	if t.IsQA() {
		return fmt.Sprintf("Q: %s\nA: %s", t.Question, t.Answer)
	}
	role := t.Role
	if role == "" {
		role = RoleUser
	}
	return fmt.Sprintf("%s: %s", strings.ToUpper(string(role)), t.Content)
}

// History is the ordered, append-only context accumulated across
// clarification rounds. Turns are never edited in place.
type History []ConversationTurn

// Append returns a new History with turns added after the existing ones.
// The receiver is left untouched.
func (h History) Append(turns ...ConversationTurn) History {
	out := make(History, 0, len(h)+len(turns))
	out = append(out, h...)
	return append(out, turns...)
}

// Render replays the history oldest first, one turn per line group.
func (h History) Render() string {
	parts := make([]string, 0, len(h))
	for _, t := range h {
		parts = append(parts, t.Render())
	}
	return strings.Join(parts, "\n")
}

// Questions returns every question asked so far: Q/A questions and
// assistant messages.
func (h History) Questions() []string {
	var qs []string
	for _, t := range h {
		switch {
		case t.Question != "":
			qs = append(qs, t.Question)
		case t.Role == RoleAssistant && t.Content != "":
			qs = append(qs, t.Content)
		}
	}
	return qs
}

// Rounds counts clarification rounds. A run of consecutive asked turns (Q/A
// pairs or assistant messages) is one round; a user message closes it.
func (h History) Rounds() int {
	rounds := 0
	inRound := false
	for _, t := range h {
		asked := t.IsQA() || t.Role == RoleAssistant
		if asked && !inRound {
			rounds++
			inRound = true
		}
		if !t.IsQA() && t.Role != RoleAssistant {
			inRound = false
		}
	}
	return rounds
}
