// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"

	"github.com/pdiddy/kit-engine/internal/errs"
)

// draft07 is the dialect every schema is compiled under; it is the newest
// draft with if/then/else that gojsonschema supports.
const draft07 = "http://json-schema.org/draft-07/schema#"

// Schema is a compiled JSON schema used to validate provider output.
type Schema struct {
	name     string
	raw      []byte
	compiled *gojsonschema.Schema
}

// NewSchema compiles a raw JSON schema document.
func NewSchema(name string, raw []byte) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", name, err)
	}
	return &Schema{name: name, raw: raw, compiled: compiled}, nil
}

// SchemaFor reflects a schema from T. Only fields tagged
// `jsonschema:"required"` are required; unknown properties are allowed so
// harmless extra fields from the model do not burn a retry. Types may refine
// their schema with a JSONSchemaExtend method.
func SchemaFor[T any](name string) (*Schema, error) {
	r := jsonschema.Reflector{
		AllowAdditionalProperties:  true,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	s := r.Reflect(v)
	s.Version = draft07

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema %s: %w", name, err)
	}
	return NewSchema(name, raw)
}

// MustSchemaFor is SchemaFor for package-level schemas built from static types.
func MustSchemaFor[T any](name string) *Schema {
	s, err := SchemaFor[T](name)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema's name.
func (s *Schema) Name() string { return s.name }

// JSON returns the schema document.
func (s *Schema) JSON() []byte { return s.raw }

// Validate checks doc against the schema. It returns a *errs.ValidationError
// listing every violation, or nil.
func (s *Schema) Validate(doc []byte) error {
	result, err := s.compiled.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return &errs.ValidationError{Parse: true, Problems: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	sort.Strings(problems)
	return &errs.ValidationError{Problems: problems}
}
