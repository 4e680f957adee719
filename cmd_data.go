package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/sadopc/wellness/internal/export"
	"github.com/sadopc/wellness/internal/metrics"
)

var (
	exportStart string
	exportEnd   string
	exportDir   string
	moodPlain   bool
)

// summaryCmd prints the summary cards
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the summary statistics",
	RunE:  runSummary,
}

// moodCmd prints the mood narrative
var moodCmd = &cobra.Command{
	Use:   "mood",
	Short: "Print the mood insights narrative",
	RunE:  runMood,
}

// exportCmd writes an export of a date range
var exportCmd = &cobra.Command{
	Use:       "export {csv|report|pdf|json}",
	Short:     "Export records to a file",
	Long:      `Loads the records in --start..--end (default: the last seven days) and writes them in the chosen format.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"csv", "report", "pdf", "json"},
	RunE:      runExport,
}

func init() {
	moodCmd.Flags().BoolVar(&moodPlain, "plain", false, "Print without markdown rendering")

	exportCmd.Flags().StringVar(&exportStart, "start", "", "First day, YYYY-MM-DD")
	exportCmd.Flags().StringVar(&exportEnd, "end", "", "Last day, YYYY-MM-DD")
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "Output directory (default from config)")
}

func runSummary(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	if err := requireLogin(client); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), cfg.GetAPITimeout())
	defer cancel()

	st, err := client.Summary(ctx)
	if err != nil && !errors.Is(err, metrics.ErrMalformedResponse) {
		return gatewayError(err, "Failed to load summary")
	}
	out := cmd.OutOrStdout()
	for _, c := range metrics.Cards(st) {
		fmt.Fprintf(out, "%s %-17s %s\n", c.Icon, c.Title, c.Value)
	}
	return nil
}

func runMood(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	if err := requireLogin(client); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), cfg.GetAPITimeout())
	defer cancel()

	text := newController(client).MoodSummary(ctx)
	if moodPlain {
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	}

	r, err := glamour.NewTermRenderer(glamour.WithStylePath("dark"), glamour.WithWordWrap(80))
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	}
	rendered, err := r.Render("# Mood Insights\n\n" + text + "\n")
	if err != nil {
		rendered = text + "\n"
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}

// exportRange resolves --start/--end; a missing bound comes from the
// default seven-day window.
func exportRange(now time.Time) (metrics.DateRange, error) {
	def := metrics.DefaultRange(now)
	start, end := strings.TrimSpace(exportStart), strings.TrimSpace(exportEnd)
	if start == "" {
		start = def.Start.Format(time.DateOnly)
	}
	if end == "" {
		end = def.End.Format(time.DateOnly)
	}
	return metrics.RangeFromDays(start, end)
}

func runExport(cmd *cobra.Command, args []string) error {
	r, err := exportRange(time.Now())
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	if err := requireLogin(client); err != nil {
		return err
	}

	dir := cfg.Export.Dir
	if exportDir != "" {
		dir = exportDir
	}
	exp := newExporter(client, dir)
	if args[0] == "report" {
		// Opening a browser is only useful from the dashboard.
		exp.Opener = nil
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), 2*time.Minute)
	defer cancel()

	ctrl := newController(client)
	if err := ctrl.Load(ctx, r); err != nil {
		return gatewayError(err, "Failed to load data")
	}
	records := ctrl.Records()

	var res export.Result
	switch args[0] {
	case "csv":
		res, err = exp.CSV(ctx, records)
	case "report":
		res, err = exp.Report(ctx, records)
	case "pdf":
		res, err = exp.PDF(ctx, records)
	case "json":
		res, err = exp.JSON(ctx, records)
	}
	if errors.Is(err, export.ErrNoData) {
		return errors.New(export.MsgNoData)
	}
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	out := cmd.OutOrStdout()
	switch {
	case errors.Is(res.Fallback, export.ErrNoBrowser):
		fmt.Fprintf(out, "No Chrome found for PDF (set export.chrome_path), wrote printable report to %s\n", res.Path)
	case res.Fallback != nil && args[0] == "pdf":
		fmt.Fprintf(out, "PDF unavailable, wrote printable report to %s\n", res.Path)
	case res.Fallback != nil:
		fmt.Fprintf(out, "Exported %d rows to %s (generated locally)\n", res.Rows, res.Path)
	default:
		fmt.Fprintf(out, "Exported %d rows to %s\n", res.Rows, res.Path)
	}
	return nil
}
