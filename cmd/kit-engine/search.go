// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/kit-engine/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search shopping sources for a product query",
	Long: `Search sends one query through the cached, rate-limited aggregator and
prints the deduplicated candidates. Source failures yield an empty list.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agg, closeAgg, err := newAggregator(cmd.Context())
		if err != nil {
			return err
		}
		defer closeAgg()

		results := agg.Search(cmd.Context(), strings.Join(args, " "))
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return search.FormatJSON(results, cmd.OutOrStdout())
		}
		search.FormatTable(results, cmd.OutOrStdout())
		return nil
	},
}

func init() {
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}
