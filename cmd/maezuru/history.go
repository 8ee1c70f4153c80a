// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/maezuru/internal/dossier"
	"github.com/pdiddy/maezuru/internal/events"
	"github.com/pdiddy/maezuru/internal/history"
	"github.com/pdiddy/maezuru/internal/scan"
	"github.com/pdiddy/maezuru/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and manage the local scan history",
	Long: `History keeps the 50 most recent successful scans, newest first, in a
local SQLite file. Entries are addressed by ID; any unique ID prefix works.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded scans, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(ctx context.Context, h *history.History) error {
			printHistory(cmd, h.Entries())
			return nil
		})
	},
}

func printHistory(cmd *cobra.Command, entries []types.HistoryEntry) {
	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No scans recorded.")
		return
	}

	fmt.Fprintf(w, "%-8s  %-16s  %-10s  %-30s  %s\n", "ID", "Captured", "Type", "Query", "Profiles")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, e := range entries {
		fmt.Fprintf(w, "%-8s  %-16s  %-10s  %-30s  %d\n",
			shortID(e.ID), e.CapturedAt.Local().Format("2006-01-02 15:04"), e.Type, e.Query, len(e.Result.FoundProfiles))
	}
	fmt.Fprintf(w, "\n%d entries\n", len(entries))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a recorded scan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(ctx context.Context, h *history.History) error {
			entry, err := h.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n\n", entry.ID, entry.Type, entry.Query)
			printResult(cmd.OutOrStdout(), entry.Result)
			return nil
		})
	},
}

// --- clear subcommand ---

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every recorded scan",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(ctx context.Context, h *history.History) error {
			n := h.Len()
			if err := h.Clear(ctx); err != nil {
				return err
			}
			events.NewBus(events.LogSink{Log: log}).Publish(events.Event{
				Kind:   events.HistoryClear,
				Detail: fmt.Sprintf("%d entries removed", n),
			})
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d entries.\n", n)
			return nil
		})
	},
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a recorded scan as YAML, JSON or an HTML dossier",
	Long: `Export writes a recorded scan to stdout, or to --output when given. The
format is chosen with --format (yaml, json, html); with --output and no
--format it follows the file extension.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	return withHistory(func(ctx context.Context, h *history.History) error {
		entry, err := h.Get(args[0])
		if err != nil {
			return err
		}

		if output != "" && format == "" {
			return dossier.WriteFile(output, entry.Result)
		}

		w := cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()
			w = f
		}

		switch strings.ToLower(format) {
		case "", "yaml", "yml":
			return dossier.WriteYAML(w, entry.Result)
		case "json":
			return dossier.WriteJSON(w, entry.Result)
		case "html":
			return dossier.Render(w, entry.Result)
		default:
			return fmt.Errorf("unknown format %q: use yaml, json or html", format)
		}
	})
}

// --- pivot subcommand ---

var historyPivotCmd = &cobra.Command{
	Use:   "pivot <id> <n>",
	Short: "Re-scan the identifier behind profile n of a recorded scan",
	Long: `Pivot takes the n-th discovered profile (1-based, as numbered by
"history show") of a recorded scan, extracts the identifier from the last
segment of its URL, and runs a new USERNAME scan on it.`,
	Args: cobra.ExactArgs(2),
	RunE: runHistoryPivot,
}

func runHistoryPivot(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("profile number %q: %w", args[1], err)
	}
	deep, _ := cmd.Flags().GetBool("deep")

	var req types.ScanRequest
	err = withHistory(func(ctx context.Context, h *history.History) error {
		entry, err := h.Get(args[0])
		if err != nil {
			return err
		}
		req, err = pivotRequest(entry, n, deep)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Pivoting on %q\n", req.Query)
	return executeScan(cmd, req)
}

// pivotRequest builds the USERNAME scan for profile n (1-based) of entry.
func pivotRequest(entry types.HistoryEntry, n int, deep bool) (types.ScanRequest, error) {
	profiles := entry.Result.FoundProfiles
	if n < 1 || n > len(profiles) {
		return types.ScanRequest{}, fmt.Errorf("profile %d out of range: entry has %d profiles", n, len(profiles))
	}
	p := profiles[n-1]
	query := p.Pivot
	if query == "" {
		query = scan.PivotQuery(p.URL)
	}
	if query == "" {
		return types.ScanRequest{}, fmt.Errorf("profile %d (%s) has no identifier to pivot on", n, p.URL)
	}
	return scan.PrepareRequest(types.ScanRequest{Query: query, Type: types.SearchUsername, DeepScan: deep}), nil
}

// withHistory opens the configured history for the duration of fn.
func withHistory(fn func(ctx context.Context, h *history.History) error) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	ctx := context.Background()
	h, closeStore, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(ctx, h)
}

func init() {
	historyExportCmd.Flags().String("format", "", "output format: yaml, json, html")
	historyExportCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyExportCmd)

	addScanRunFlags(historyPivotCmd)
	historyCmd.AddCommand(historyPivotCmd)
	rootCmd.AddCommand(historyCmd)
}
