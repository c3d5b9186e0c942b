package main

import (
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/abwindow/internal/config"
	"github.com/sells-group/abwindow/internal/pipeline"
	"github.com/sells-group/abwindow/internal/table"
)

var (
	runSources       []string
	runOutput        string
	runReferenceDate string
	runAnchorWeekday string
	runWindowDays    int
	runLagDays       int
	runPreview       int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Consolidate the configured extracts into one windowed file",
	Long: `Runs the full pipeline: load every source, concatenate, keep the rows inside the
rolling window, derive c_d_ratio and days_from_start, and write the output.

Missing sources are skipped with a warning. Flags override config.yaml and
ABWINDOW_* environment variables.

Examples:
  abwindow run
  abwindow run --reference-date 2024-03-13 --output out/result.xlsx
  abwindow run --source a.csv --source b.xlsx --preview 5`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pc := applyRunFlags(cmd, cfg.Pipeline)
		checked := config.Config{Pipeline: pc, Log: cfg.Log}
		if err := checked.Validate(); err != nil {
			return err
		}

		opts, err := pipeline.OptionsFromConfig(pc, now())
		if err != nil {
			return err
		}

		result, err := pipeline.New(appFs).Run(ctx, opts)
		if result != nil && runPreview > 0 && result.Consolidated.Columns != nil {
			formatPreview(cmd.OutOrStdout(), result.Consolidated, runPreview)
		}
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("consolidation complete",
			zap.String("run_id", result.RunID),
			zap.String("window", result.Window.String()),
			zap.Int("rows", result.Final.Len()),
			zap.String("output", result.OutputPath),
		)
		formatSummary(cmd.OutOrStdout(), result)
		return nil
	},
}

// applyRunFlags returns pc with every explicitly set flag applied.
func applyRunFlags(cmd *cobra.Command, pc config.PipelineConfig) config.PipelineConfig {
	flags := cmd.Flags()
	if flags.Changed("source") {
		pc.Sources = runSources
	}
	if flags.Changed("output") {
		pc.Output = runOutput
	}
	if flags.Changed("reference-date") {
		pc.ReferenceDate = runReferenceDate
	}
	if flags.Changed("anchor-weekday") {
		pc.AnchorWeekday = runAnchorWeekday
	}
	if flags.Changed("window-days") {
		pc.WindowDays = runWindowDays
	}
	if flags.Changed("lag-days") {
		pc.LagDays = runLagDays
	}
	return pc
}

// formatSummary writes a short per-run report to out.
func formatSummary(out io.Writer, r *pipeline.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", r.RunID)
	_, _ = fmt.Fprintf(w, "Window:\t%s (%d days)\n", r.Window, r.Window.Days())
	for _, s := range r.Sources {
		_, _ = fmt.Fprintf(w, "Source:\t%s\t%s\t%d rows\n", s.Location, s.Status, s.Dataset.Len())
	}
	_, _ = fmt.Fprintf(w, "Consolidated rows:\t%d\n", r.Consolidated.Len())
	if r.Unparsed > 0 {
		_, _ = fmt.Fprintf(w, "Unparseable dates:\t%d\n", r.Unparsed)
	}
	_, _ = fmt.Fprintf(w, "Rows in window:\t%d\n", r.Final.Len())
	_, _ = fmt.Fprintf(w, "Output:\t%s\n", r.OutputPath)
	_ = w.Flush()
}

// formatPreview writes column info and the first n rows of ds to out.
func formatPreview(out io.Writer, ds table.Dataset, n int) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "%d rows, %d columns\n", ds.Len(), len(ds.Columns))
	_, _ = fmt.Fprintln(w, "COLUMN\tNON_NULL\tKIND")
	for _, c := range table.Describe(ds) {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", c.Name, c.NonNull, c.Kind)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(ds.Columns, "\t"))
	for _, rec := range table.Head(ds, n) {
		_, _ = fmt.Fprintln(w, strings.Join(rec, "\t"))
	}
	_ = w.Flush()
	_, _ = fmt.Fprintln(out)
}

func init() {
	runCmd.Flags().StringArrayVar(&runSources, "source", nil, "extract to read, repeatable (default from config)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "output file, .csv or .xlsx (default from config)")
	runCmd.Flags().StringVar(&runReferenceDate, "reference-date", "", "reference date YYYY-MM-DD (default today)")
	runCmd.Flags().StringVar(&runAnchorWeekday, "anchor-weekday", "", "weekday the window ends on (default from config)")
	runCmd.Flags().IntVar(&runWindowDays, "window-days", 0, "window length in days (default from config)")
	runCmd.Flags().IntVar(&runLagDays, "lag-days", 0, "days between the reference date and the latest eligible anchor day (default from config)")
	runCmd.Flags().IntVar(&runPreview, "preview", 0, "print column info and the first n consolidated rows")
	rootCmd.AddCommand(runCmd)
}
