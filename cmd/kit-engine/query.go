// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/kit-engine/internal/query"
	"github.com/pdiddy/kit-engine/pkg/types"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print the search plan for an item or a whole kit",
	Long: `Query prints the clean query, expanded query and strict-match fingerprint
derived from an item. With --kit it reads a kit (JSON or YAML, such as the
output of the kit command) and prints one plan per item in section order.
It makes no network calls.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var plan any
		if path, _ := cmd.Flags().GetString("kit"); path != "" {
			plans, err := plansFromKitFile(path)
			if err != nil {
				return err
			}
			plan = plans
		} else {
			item, err := itemFromFlags(cmd)
			if err != nil {
				return err
			}
			plan = query.Build(item)
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(plan); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	addItemFlags(queryCmd)
	queryCmd.Flags().String("kit", "", "kit file (JSON or YAML) to plan every item of, instead of --name")
	rootCmd.AddCommand(queryCmd)
}

// plansFromKitFile loads a kit document and returns the plan for each of its
// items.
func plansFromKitFile(path string) ([]types.QueryPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading kit file: %w", err)
	}
	var k types.Kit
	if err := yaml.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("parsing kit file %s: %w", path, err)
	}
	if k.Type == types.KitTypeQuestions || k.ItemCount() == 0 {
		return nil, fmt.Errorf("kit file %s has no items", path)
	}
	return query.BuildAll(k), nil
}

func addItemFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "item name (required)")
	cmd.Flags().StringSlice("spec", nil, "spec to search for (repeatable)")
	cmd.Flags().StringSlice("term", nil, "synonym query term (repeatable)")
	cmd.Flags().String("brand", "", "brand hint")
	cmd.Flags().String("mpn", "", "manufacturer part number hint")
	cmd.Flags().String("model", "", "model hint")
	cmd.Flags().String("upc", "", "UPC hint")
}

func itemFromFlags(cmd *cobra.Command) (types.KitItem, error) {
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		return types.KitItem{}, errors.New("--name is required")
	}
	specs, _ := cmd.Flags().GetStringSlice("spec")
	terms, _ := cmd.Flags().GetStringSlice("term")
	return types.KitItem{
		ItemKey:       "adhoc",
		Name:          name,
		SpecsToSearch: specs,
		QueryTerms:    terms,
		IdentifierHints: types.IdentifierHints{
			Brand: optional(cmd, "brand"),
			MPN:   optional(cmd, "mpn"),
			Model: optional(cmd, "model"),
			UPC:   optional(cmd, "upc"),
		},
	}, nil
}

func optional(cmd *cobra.Command, flag string) *string {
	v, _ := cmd.Flags().GetString(flag)
	if v == "" {
		return nil
	}
	return &v
}
