// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package kit turns an accepted task into a structured, sectioned kit of
// abstract items. Purchase metadata is attached later by the pipeline.
package kit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/kit-engine/internal/generate"
	"github.com/pdiddy/kit-engine/pkg/types"
)

// Task is what the kit is built for: a structured interpretation from the
// clarification gate or, when the gate was bypassed, the raw request text.
type Task struct {
	Interpretation *types.TaskInterpretation
	Text           string
}

// String renders the task for the prompt. Structured tasks are serialized
// to JSON; raw tasks pass through.
func (t Task) String() string {
	if t.Interpretation != nil {
		b, err := json.Marshal(t.Interpretation)
		if err == nil {
			return string(b)
		}
	}
	return t.Text
}

var kitSchema = generate.MustSchemaFor[types.Kit]("kit")

var kitPromptTmpl = template.Must(template.New("kit_builder").Parse(`You are an expert shopping-kit builder. Given a task, produce a complete, practical kit of products someone would need to accomplish it, grouped into named sections.

For every item provide:
- "item_key": a short identifier, unique across the whole kit (lowercase, hyphenated)
- "name": a generic product name a shopper would search for (no brand unless essential)
- "description": one sentence on what the item is for
- "sku_type": the product category
- "specs_to_search": the specifications that matter when choosing it, most important first (e.g. "2-person", "waterproof")
- "query_terms": alternative search phrases and synonyms
- "quantity_suggestion": how many to buy
- "priority": one of "essential", "recommended", "optional"
- "safety_notes": safety guidance specific to this item (array of strings, may be empty)
- "identifier_hints": an object with "brand", "mpn", "model" and "upc"; use null for anything you do not know, never invent identifiers

Respond with a single JSON object with "kit_title", "summary" and "sections" (each section has "name" and "items"). Do not include any text outside the JSON object.

Task:
{{.Task}}
{{if .Clarifications}}
Clarifications:
{{.Clarifications}}
{{end}}{{if .Preferences}}
User preferences:
{{.Preferences}}
{{end}}`))

// Generator produces kits through the structured generation client.
type Generator struct {
	client *generate.Client
	logger *zap.Logger
}

// NewGenerator returns a Generator that calls client.
func NewGenerator(client *generate.Client, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{client: client, logger: logger}
}

// Build renders the kit prompt and returns the validated kit. Type is left
// unset; item keys are unique and safety notes carry no duplicates.
func (g *Generator) Build(ctx context.Context, task Task, clarifications, preferences string) (types.Kit, error) {
	taskText := task.String()
	prompt, err := renderPrompt(taskText, clarifications, preferences)
	if err != nil {
		return types.Kit{}, fmt.Errorf("rendering kit prompt: %w", err)
	}

	k, err := generate.GenerateInto[types.Kit](ctx, g.client, generate.Request{
		SystemPrompt: prompt,
		UserPrompt:   taskText,
		Schema:       kitSchema,
		Check:        checkUniqueKeys,
	})
	if err != nil {
		return types.Kit{}, fmt.Errorf("generating kit: %w", err)
	}

	k.Type = ""
	for si := range k.Sections {
		for ii := range k.Sections[si].Items {
			it := &k.Sections[si].Items[ii]
			it.SafetyNotes = dedupe(it.SafetyNotes)
		}
	}

	g.logger.Info("kit generated",
		zap.String("kit_title", k.KitTitle),
		zap.Int("sections", len(k.Sections)),
		zap.Int("items", k.ItemCount()))
	return k, nil
}

// checkUniqueKeys rejects kits that reuse an item_key.
func checkUniqueKeys(doc json.RawMessage) error {
	var k types.Kit
	if err := json.Unmarshal(doc, &k); err != nil {
		return err
	}
	if dups := k.DuplicateItemKeys(); len(dups) > 0 {
		return fmt.Errorf("item_key must be unique within the kit; duplicated: %s", strings.Join(dups, ", "))
	}
	return nil
}

// dedupe drops blank and repeated notes, keeping first occurrences.
func dedupe(notes []string) []string {
	if len(notes) == 0 {
		return notes
	}
	seen := make(map[string]bool, len(notes))
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func renderPrompt(task, clarifications, preferences string) (string, error) {
	var buf bytes.Buffer
	err := kitPromptTmpl.Execute(&buf, struct {
		Task           string
		Clarifications string
		Preferences    string
	}{
		Task:           task,
		Clarifications: strings.TrimSpace(clarifications),
		Preferences:    strings.TrimSpace(preferences),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
