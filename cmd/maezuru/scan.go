// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/maezuru/internal/dossier"
	"github.com/pdiddy/maezuru/internal/events"
	"github.com/pdiddy/maezuru/internal/scan"
	"github.com/pdiddy/maezuru/pkg/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan [query]",
	Short: "Run one OSINT scan against a target",
	Long: `Scan sends the target to the AI collaborator with web and maps grounding
enabled, then prints the narrative report, the structured personal data and
the cited profiles with their platform and confidence.

The query may be omitted when --file is given; the file is then analysed on
its own. Successful scans are recorded in the local history unless
--no-history is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	addScanFlags(scanCmd)
	rootCmd.AddCommand(scanCmd)
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("type", "t", string(types.SearchUsername), "search type: USERNAME, EMAIL, PHONE, REALNAME, DOMAIN, MULTIMEDIA")
	cmd.Flags().StringP("file", "f", "", "attach a file (image, PDF, audio; max 5 MiB)")
	addScanRunFlags(cmd)
}

// addScanRunFlags registers the flags shared by every command that runs a scan.
func addScanRunFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("deep", false, "deep scan: court records, official gazettes and social networks")
	cmd.Flags().StringP("output", "o", "", "write the full result to a .yaml or .json file")
	cmd.Flags().String("dossier", "", "write the HTML dossier to this path (a directory uses the default file name)")
	cmd.Flags().Bool("no-history", false, "do not record the scan in the local history")
	cmd.Flags().Bool("bell", false, "ring the terminal bell when the scan finishes")
}

func runScan(cmd *cobra.Command, args []string) error {
	req, err := buildScanRequest(cmd, args)
	if err != nil {
		return err
	}
	return executeScan(cmd, req)
}

// executeScan runs req, prints the result and handles the history, output
// and dossier flags. req must already be prepared with scan.PrepareRequest
// so the recorded query matches the one sent.
func executeScan(cmd *cobra.Command, req types.ScanRequest) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	bus := events.NewBus(events.LogSink{Log: log})
	if bell, _ := cmd.Flags().GetBool("bell"); bell {
		bus.Subscribe(events.BellSink{W: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanner, err := newScanner(ctx, cfg, bus)
	if err != nil {
		return err
	}

	result, err := scanner.Scan(ctx, req)
	if err != nil {
		return err
	}
	result = result.WithCapture(time.Now())

	printResult(cmd.OutOrStdout(), result)

	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
		if err := recordScan(context.WithoutCancel(ctx), cfg, req, result); err != nil {
			log.WithError(err).Warn("scan not recorded in history")
		}
	}

	if out, _ := cmd.Flags().GetString("output"); out != "" {
		if err := dossier.WriteFile(out, result); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Result written to %s\n", out)
	}
	if path, _ := cmd.Flags().GetString("dossier"); path != "" {
		written, err := writeDossier(path, result)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Dossier written to %s\n", written)
	}
	return nil
}

// buildScanRequest turns flags and args into a ScanRequest, loading and
// encoding the attachment when --file is set.
func buildScanRequest(cmd *cobra.Command, args []string) (types.ScanRequest, error) {
	typeFlag, _ := cmd.Flags().GetString("type")
	st, err := types.ParseSearchType(typeFlag)
	if err != nil {
		return types.ScanRequest{}, err
	}
	deep, _ := cmd.Flags().GetBool("deep")

	req := types.ScanRequest{Type: st, DeepScan: deep}
	if len(args) > 0 {
		req.Query = strings.TrimSpace(args[0])
	}

	if path, _ := cmd.Flags().GetString("file"); path != "" {
		att, err := scan.LoadAttachment(path)
		if err != nil {
			return types.ScanRequest{}, err
		}
		req.Attachment = att
	}

	if req.Query == "" && req.Attachment == nil {
		return types.ScanRequest{}, fmt.Errorf("a query or --file is required")
	}
	return scan.PrepareRequest(req), nil
}

func recordScan(ctx context.Context, cfg types.Config, req types.ScanRequest, result types.ScanResult) error {
	h, closeStore, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	entry, err := h.Append(ctx, req, result)
	if err != nil {
		return err
	}
	log.WithField("id", entry.ID).Debug("scan recorded")
	return nil
}

// writeDossier writes the HTML dossier to path, or into path under the
// default file name when path is a directory.
func writeDossier(path string, result types.ScanResult) (string, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, dossier.FileName(result))
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating dossier: %w", err)
	}
	if err := dossier.Render(f, result); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// printResult writes the human-readable report: summary, personal data and
// the discovered profiles table.
func printResult(w io.Writer, r types.ScanResult) {
	fmt.Fprintln(w, r.Summary)

	if pd := r.PersonalData; pd != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "PERSONAL DATA")
		fmt.Fprintln(w, strings.Repeat("-", 60))
		printField(w, "Name", pd.FullName)
		printField(w, "CPF/Doc", pd.CPF)
		printField(w, "Birth date", pd.BirthDate)
		printField(w, "Location", pd.Location)
		printField(w, "Occupation", pd.Occupation)
		printField(w, "E-mails", strings.Join(pd.Contact.Emails, ", "))
		printField(w, "Phones", strings.Join(pd.Contact.Phones, ", "))
		printField(w, "Spouse", pd.Family.Spouse)
		printField(w, "Children", strings.Join(pd.Family.Children, ", "))
		printField(w, "Parents", strings.Join(pd.Family.Parents, ", "))
		printField(w, "Relatives", strings.Join(pd.Family.Others, ", "))
	}

	if len(r.FoundProfiles) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%-3s  %-22s  %-6s  %-20s  %s\n", "#", "Platform", "Conf.", "Pivot", "URL")
		fmt.Fprintln(w, strings.Repeat("-", 80))
		for i, p := range r.FoundProfiles {
			fmt.Fprintf(w, "%-3d  %-22s  %-6s  %-20s  %s\n", i+1, p.Platform, p.Confidence, p.Pivot, p.URL)
		}
	}

	fmt.Fprintf(w, "\n%d profiles, %d sources\n", len(r.FoundProfiles), len(r.Sources))
}

func printField(w io.Writer, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "%-12s %s\n", label+":", value)
}
