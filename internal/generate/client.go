// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate obtains schema-valid JSON from a large-language-model
// provider. A failed parse or schema check is fed back to the model as a
// repair hint on the next attempt; transport failures are returned at once.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/kit-engine/internal/errs"
)

// DefaultMaxRetries is the number of repair attempts after the first call.
const DefaultMaxRetries = 2

// Provider is the raw completion boundary. Implementations return whatever
// text the model produced; any returned error is treated as a transport
// failure and is not retried here.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

// Request describes one structured generation call.
type Request struct {
	// SystemPrompt and UserPrompt are strings, or any value that is
	// marshaled to canonical JSON text.
	SystemPrompt any
	UserPrompt   any

	// Schema validates the parsed response. Nil accepts any valid JSON.
	Schema *Schema

	// Check runs after schema validation for rules a schema cannot express.
	// A returned error is handled like a schema violation.
	Check func(doc json.RawMessage) error
}

// Client runs the generate-validate-repair loop against a Provider.
type Client struct {
	provider   Provider
	maxRetries int
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithMaxRetries sets the number of repair attempts. Values below zero are
// ignored; zero means the first answer must be valid.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithLogger sets the logger used for attempt diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient returns a Client that calls p.
func NewClient(p Provider, opts ...Option) *Client {
	c := &Client{
		provider:   p,
		maxRetries: DefaultMaxRetries,
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Generate calls the provider once plus up to the configured number of
// repair attempts and returns the first response that parses and validates.
// After each failure the error text is appended to the system prompt, which
// therefore only grows within a call; the first failure also appends the
// schema document. Exhaustion yields a *errs.GenerationError wrapping the
// last *errs.ValidationError; a provider failure yields a
// *errs.TransportError.
func (c *Client) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	system, err := promptText(req.SystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("encoding system prompt: %w", err)
	}
	user, err := promptText(req.UserPrompt)
	if err != nil {
		return nil, fmt.Errorf("encoding user prompt: %w", err)
	}

	schemaName := ""
	if req.Schema != nil {
		schemaName = req.Schema.Name()
	}

	var lastErr error
	attempts := c.maxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &errs.TransportError{Provider: c.provider.Name(), Err: err}
		}

		content, err := c.provider.Complete(ctx, system, user)
		if err != nil {
			c.logger.Warn("provider call failed",
				zap.String("provider", c.provider.Name()),
				zap.String("schema", schemaName),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return nil, &errs.TransportError{Provider: c.provider.Name(), Err: err}
		}

		doc, verr := validate(content, req)
		if verr == nil {
			c.logger.Debug("structured generation succeeded",
				zap.String("schema", schemaName),
				zap.Int("attempt", attempt))
			return doc, nil
		}

		lastErr = verr
		c.logger.Warn("response rejected",
			zap.String("schema", schemaName),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(verr))

		if attempt < attempts {
			system += repairHint(verr)
			if attempt == 1 && req.Schema != nil {
				system += schemaHint(req.Schema)
			}
		}
	}

	return nil, &errs.GenerationError{Attempts: attempts, Err: lastErr}
}

// GenerateInto runs Generate and decodes the validated document into T.
func GenerateInto[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var out T
	doc, err := c.Generate(ctx, req)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(doc, &out); err != nil {
		return out, fmt.Errorf("decoding %T: %w", out, err)
	}
	return out, nil
}

// repairHint is appended to the system prompt after a rejected attempt.
func repairHint(err error) string {
	return fmt.Sprintf("\n\nPREVIOUS ATTEMPT FAILED: %v\n"+
		"Please fix the JSON structure and ensure it matches the schema exactly.", err)
}

// schemaHint shows the model the document it has to produce.
func schemaHint(s *Schema) string {
	return "\nThe response must be a JSON object valid against this JSON Schema:\n" + string(s.JSON())
}

// validate parses content and applies the schema and the semantic check.
func validate(content string, req Request) (json.RawMessage, error) {
	body := stripFence(content)

	var v any
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return nil, &errs.ValidationError{Parse: true, Problems: []string{err.Error()}}
	}
	doc := json.RawMessage(body)

	if req.Schema != nil {
		if err := req.Schema.Validate(doc); err != nil {
			return nil, err
		}
	}
	if req.Check != nil {
		if err := req.Check(doc); err != nil {
			return nil, &errs.ValidationError{Problems: []string{err.Error()}}
		}
	}
	return doc, nil
}

// stripFence removes a surrounding Markdown code fence, which some models
// add even in JSON mode.
func stripFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

// promptText passes strings through and marshals anything else to JSON.
func promptText(p any) (string, error) {
	switch v := p.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
