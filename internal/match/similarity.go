// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Similarity is a token-set ratio over two normalized strings. Both sides
// are split into distinct sorted tokens; the shared tokens are compared
// against each side's full token set, and the two full sets against each
// other, with the Ratcliff/Obershelp ratio 2*M/T. The best of those scores
// is returned.
//
// A kit item name whose words all appear in a longer product title scores
// 1.0, while a title sharing no words with the name is scored only on its
// characters as a whole, so stray letter overlap stays low. The result is
// in [0, 1] and symmetric; either string being empty yields 0.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	shared, onlyA, onlyB := splitTokens(a, b)
	sharedText := strings.Join(shared, " ")
	fullA := strings.TrimSpace(sharedText + " " + strings.Join(onlyA, " "))
	fullB := strings.TrimSpace(sharedText + " " + strings.Join(onlyB, " "))

	best := ratio(fullA, fullB)
	if sharedText != "" {
		best = max(best, ratio(sharedText, fullA), ratio(sharedText, fullB))
	}
	return best
}

// splitTokens returns the sorted distinct tokens common to a and b, and
// those found only in a or only in b.
func splitTokens(a, b string) (shared, onlyA, onlyB []string) {
	inA := tokenSet(a)
	inB := tokenSet(b)
	for t := range inA {
		if inB[t] {
			shared = append(shared, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range inB {
		if !inA[t] {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(shared)
	sort.Strings(onlyA)
	sort.Strings(onlyB)
	return shared, onlyA, onlyB
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(s) {
		set[t] = true
	}
	return set
}

// ratio is the character-level Ratcliff/Obershelp ratio. The matcher's
// block search depends on argument order, so the pair is put in a fixed
// order first.
func ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	if a > b {
		a, b = b, a
	}
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}
