// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/pdiddy/maezuru/internal/graph"
	"github.com/pdiddy/maezuru/internal/history"
)

var graphCmd = &cobra.Command{
	Use:   "graph <id>",
	Short: "Print the link graph of a recorded scan",
	Long: `Graph builds the link graph of a recorded scan: the target at the centre,
one node per discovered profile, and up to eight cited sources grouped by
registrable domain. The output is Graphviz DOT unless --json is set.

  maezuru graph 3f2a | dot -Tsvg > graph.svg`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withHistory(func(ctx context.Context, h *history.History) error {
			entry, err := h.Get(args[0])
			if err != nil {
				return err
			}
			g := graph.Build(entry.Result)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(g)
			}
			return graph.WriteDOT(cmd.OutOrStdout(), g)
		})
	},
}

func init() {
	graphCmd.Flags().Bool("json", false, "print nodes and edges as JSON")
	rootCmd.AddCommand(graphCmd)
}
