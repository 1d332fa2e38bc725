// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/kit-engine/internal/match"
	"github.com/pdiddy/kit-engine/internal/query"
	"github.com/pdiddy/kit-engine/pkg/types"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Search for an item and rank the candidates",
	Long: `Match builds the query plan for an ad-hoc item, searches with the clean
query (falling back to the expanded one), and prints every candidate that
ranked above zero with its confidence and reasons.`,
	RunE: runMatch,
}

func init() {
	addItemFlags(matchCmd)
	matchCmd.Flags().Bool("json", false, "output ranked matches as JSON")
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	item, err := itemFromFlags(cmd)
	if err != nil {
		return err
	}
	agg, closeAgg, err := newAggregator(cmd.Context())
	if err != nil {
		return err
	}
	defer closeAgg()

	plan := query.Build(item)
	results := agg.Search(cmd.Context(), plan.CleanQuery)
	if len(results) == 0 && plan.ExpandedQuery != plan.CleanQuery {
		results = agg.Search(cmd.Context(), plan.ExpandedQuery)
	}
	matches := match.Rank(item, results)

	w := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if matches == nil {
			matches = []types.RankedMatch{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(matches)
	}
	formatMatches(matches, len(results), w)
	return nil
}

func formatMatches(matches []types.RankedMatch, searched int, w io.Writer) {
	if len(matches) == 0 {
		fmt.Fprintf(w, "No matches among %d results.\n", searched)
		return
	}
	fmt.Fprintf(w, "%-5s  %-50s  %-10s  %s\n", "Conf", "Title", "Price", "Reasons")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, m := range matches {
		title := m.Candidate.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		fmt.Fprintf(w, "%-5.2f  %-50s  %-10s  %s\n", m.Confidence, title, m.Candidate.Price, strings.Join(m.Reasons, ", "))
	}
	fmt.Fprintf(w, "\n%d of %d results matched\n", len(matches), searched)
}
