// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package clarify decides whether a request carries enough context to build
// a kit or whether the user must first answer follow-up questions.
package clarify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/invopop/jsonschema"
	"go.uber.org/zap"

	"github.com/pdiddy/kit-engine/internal/generate"
	"github.com/pdiddy/kit-engine/pkg/types"
)

// MaxQuestions caps how many questions the gate may ask in one round.
const MaxQuestions = 3

// Outcome is the gate's decision: either NeedsClarification or Proceed.
type Outcome interface {
	outcome()
}

// NeedsClarification carries the questions the user must answer.
type NeedsClarification struct {
	Questions []string
}

// Proceed carries the task interpretation a kit is built from.
type Proceed struct {
	Task types.TaskInterpretation
}

func (NeedsClarification) outcome() {}
func (Proceed) outcome()            {}

// gateResponse is the wire shape the model must produce.
type gateResponse struct {
	NeedClarification  bool                      `json:"need_clarification" jsonschema:"required"`
	Questions          []string                  `json:"questions,omitempty" jsonschema:"maxItems=3"`
	TaskInterpretation *types.TaskInterpretation `json:"task_interpretation,omitempty"`
}

// JSONSchemaExtend makes questions mandatory (1 to 3 of them) when the model
// asks for clarification, and the task interpretation mandatory otherwise.
func (gateResponse) JSONSchemaExtend(s *jsonschema.Schema) {
	asking := jsonschema.NewProperties()
	asking.Set("need_clarification", &jsonschema.Schema{Const: true})

	minOne := uint64(1)
	questions := jsonschema.NewProperties()
	questions.Set("questions", &jsonschema.Schema{Type: "array", MinItems: &minOne})

	s.If = &jsonschema.Schema{Properties: asking, Required: []string{"need_clarification"}}
	s.Then = &jsonschema.Schema{Required: []string{"questions"}, Properties: questions}
	s.Else = &jsonschema.Schema{Required: []string{"task_interpretation"}}
}

var gateSchema = generate.MustSchemaFor[gateResponse]("clarify_gate")

var gatePromptTmpl = template.Must(template.New("clarify_gate").Parse(`You are the intake step of a shopping-kit assistant. A user describes a project, trip or task and you decide whether you know enough to assemble a list of products for it.

Ask for clarification only when a missing detail would change which products belong in the kit (for example: number of people, climate or season, skill level, budget). Do not ask about details you can reasonably assume; record those as assumptions instead. Never ask a question that the conversation below already answers.

Respond with a single JSON object:
- "need_clarification": true or false
- "questions": when need_clarification is true, 1 to 3 short questions for the user
- "task_interpretation": when need_clarification is false, an object with
  - "domain": the activity or project area (string)
  - "goals": what the user wants to achieve (array of strings)
  - "assumptions": details you assumed (array of strings)
  - "constraints": limits stated by the user such as budget or size (array of strings)
  - "safety_considerations": safety topics the kit must cover (array of strings)
  - "best_practice_notes": practical advice that shapes the kit (array of strings)

Do not include any text outside the JSON object.

User request:
{{.UserText}}
{{if .History}}
Conversation so far:
{{.History}}
{{end}}{{if .Preferences}}
User preferences:
{{.Preferences}}
{{end}}`))

// Gate runs the clarification decision through the structured generation
// client. It does not apply any override; callers decide what to do with a
// NeedsClarification outcome.
type Gate struct {
	client *generate.Client
	logger *zap.Logger
}

// NewGate returns a Gate that calls client.
func NewGate(client *generate.Client, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{client: client, logger: logger}
}

// Decide asks the model whether userText, together with the rendered
// history and free-form preferences, is enough to proceed.
func (g *Gate) Decide(ctx context.Context, userText, history, preferences string) (Outcome, error) {
	prompt, err := renderPrompt(userText, history, preferences)
	if err != nil {
		return nil, fmt.Errorf("rendering gate prompt: %w", err)
	}

	resp, err := generate.GenerateInto[gateResponse](ctx, g.client, generate.Request{
		SystemPrompt: prompt,
		UserPrompt:   userText,
		Schema:       gateSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("clarification gate: %w", err)
	}

	if resp.NeedClarification {
		qs := cleanQuestions(resp.Questions)
		g.logger.Debug("gate asked for clarification", zap.Strings("questions", qs))
		return NeedsClarification{Questions: qs}, nil
	}

	g.logger.Debug("gate accepted request", zap.String("domain", resp.TaskInterpretation.Domain))
	return Proceed{Task: *resp.TaskInterpretation}, nil
}

func renderPrompt(userText, history, preferences string) (string, error) {
	var buf bytes.Buffer
	err := gatePromptTmpl.Execute(&buf, struct {
		UserText    string
		History     string
		Preferences string
	}{
		UserText:    userText,
		History:     strings.TrimSpace(history),
		Preferences: strings.TrimSpace(preferences),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// cleanQuestions trims blanks and caps the list at MaxQuestions.
func cleanQuestions(qs []string) []string {
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
		if len(out) == MaxQuestions {
			break
		}
	}
	return out
}
