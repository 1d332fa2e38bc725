// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize canonicalizes product text so kit item names and scraped
// titles can be compared on equal terms.
package normalize

import "strings"

// String splits s on whitespace, lowercases each token, strips every
// character outside [a-z0-9-&], drops tokens left empty, and joins the rest
// with single spaces. It is idempotent: String(String(s)) == String(s).
func String(s string) string {
	fields := strings.Fields(s)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := token(f); t != "" {
			tokens = append(tokens, t)
		}
	}
	return strings.Join(tokens, " ")
}

// All normalizes each string and drops the ones that normalize to nothing.
func All(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n := String(v); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func token(f string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(f) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '&' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
