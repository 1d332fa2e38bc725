// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generatetest provides a scripted generate.Provider for tests.
package generatetest

import (
	"context"
	"errors"
	"sync"
)

// Call records the prompts a Scripted provider received.
type Call struct {
	System string
	User   string
}

// Scripted replays canned replies in order. Once the replies run out the
// last one repeats. A non-nil Err is returned from every call instead.
type Scripted struct {
	Replies []string
	Err     error

	mu    sync.Mutex
	calls []Call
}

// Name implements generate.Provider.
func (s *Scripted) Name() string { return "scripted" }

// Complete implements generate.Provider.
func (s *Scripted) Complete(_ context.Context, system, user string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{System: system, User: user})
	if s.Err != nil {
		return "", s.Err
	}
	if len(s.Replies) == 0 {
		return "", errors.New("scripted provider has no replies")
	}
	i := len(s.calls) - 1
	if i >= len(s.Replies) {
		i = len(s.Replies) - 1
	}
	return s.Replies[i], nil
}

// Calls returns a copy of the recorded calls.
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}
