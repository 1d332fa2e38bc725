// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package errs defines the error taxonomy shared by pipeline stages.
//
// TransportError marks a provider that could not be reached, rejected the
// credential, or timed out. ValidationError marks a response that parsed but
// did not satisfy its schema (or did not parse at all). GenerationError is
// what the structured generation client returns once its repair attempts are
// exhausted.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStalledDialogue marks a clarification loop that stopped making progress.
// It is logged, never returned to callers: the pipeline proceeds instead.
var ErrStalledDialogue = errors.New("clarification dialogue stalled")

// TransportError wraps a failed call to an external provider.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError lists why a response was rejected.
type ValidationError struct {
	// Parse is true when the response was not valid JSON at all.
	Parse    bool
	Problems []string
}

func (e *ValidationError) Error() string {
	if e.Parse {
		return "invalid JSON: " + strings.Join(e.Problems, "; ")
	}
	return "schema validation failed: " + strings.Join(e.Problems, "; ")
}

// GenerationError is returned when no valid response was obtained within the
// allowed attempts. Err is the last validation error.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("no valid response after %d attempts: %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsTransport reports whether err is or wraps a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsGeneration reports whether err is or wraps a GenerationError.
func IsGeneration(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
