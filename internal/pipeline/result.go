// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"encoding/json"
	"errors"

	"github.com/pdiddy/kit-engine/pkg/types"
)

// Result is the outcome of one Run: questions for the user, or a final kit.
type Result struct {
	Type      types.KitType
	Questions []string
	Kit       *types.Kit
}

// questionsPayload is the wire form of a Questions result.
type questionsPayload struct {
	Type types.KitType `json:"type" yaml:"type"`
	Data []string      `json:"data" yaml:"data"`
}

// IsQuestions reports whether the run halted for clarification.
func (r Result) IsQuestions() bool { return r.Type == types.KitTypeQuestions }

// payload returns the value a Result is serialized as.
func (r Result) payload() (any, error) {
	if r.IsQuestions() {
		data := r.Questions
		if data == nil {
			data = []string{}
		}
		return questionsPayload{Type: types.KitTypeQuestions, Data: data}, nil
	}
	if r.Kit == nil {
		return nil, errors.New("pipeline result has neither questions nor a kit")
	}
	return r.Kit, nil
}

// MarshalJSON encodes a Questions result as {"type":"questions","data":[...]}
// and a final result as the kit itself.
func (r Result) MarshalJSON() ([]byte, error) {
	p, err := r.payload()
	if err != nil {
		return nil, err
	}
	return json.Marshal(p)
}

// MarshalYAML mirrors MarshalJSON for YAML output.
func (r Result) MarshalYAML() (any, error) {
	return r.payload()
}
