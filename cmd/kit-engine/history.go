// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/kit-engine/internal/kitstore"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List or export kits saved with kit --save",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := kitstore.Open(cfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()

		w := cmd.OutOrStdout()
		if export, _ := cmd.Flags().GetBool("export"); export {
			return store.ExportYAML(cmd.Context(), user, w)
		}

		kits, err := store.List(cmd.Context(), user, limit)
		if err != nil {
			return err
		}
		if len(kits) == 0 {
			fmt.Fprintf(w, "No saved kits for %s.\n", user)
			return nil
		}
		fmt.Fprintf(w, "%-36s  %-20s  %-5s  %s\n", "ID", "Created", "Items", "Title")
		fmt.Fprintln(w, strings.Repeat("-", 100))
		for _, k := range kits {
			fmt.Fprintf(w, "%-36s  %-20s  %-5d  %s\n",
				k.ID, k.CreatedAt.Local().Format("2006-01-02 15:04:05"), k.Kit.ItemCount(), k.KitTitle)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().String("user", "local", "user id")
	historyCmd.Flags().Int("limit", kitstore.DefaultListLimit, "maximum kits to list")
	historyCmd.Flags().Bool("export", false, "write every saved kit as YAML")
	rootCmd.AddCommand(historyCmd)
}
