package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/abwindow/internal/pipeline"
	"github.com/sells-group/abwindow/internal/window"
)

var windowReferenceDate string

var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Print the analysis window for a reference date without reading data",
	RunE: func(cmd *cobra.Command, _ []string) error {
		pc := cfg.Pipeline
		if cmd.Flags().Changed("reference-date") {
			pc.ReferenceDate = windowReferenceDate
		}

		opts, err := pipeline.OptionsFromConfig(pc, now())
		if err != nil {
			return err
		}

		w, err := window.Resolve(opts.ReferenceDate, opts.Anchor, opts.LagDays, opts.WindowDays)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s to %s (%d days)\n",
			w.Start.Format("Mon 2006-01-02"), w.End.Format("Mon 2006-01-02"), w.Days())
		return err
	},
}

func init() {
	windowCmd.Flags().StringVar(&windowReferenceDate, "reference-date", "", "reference date YYYY-MM-DD (default today)")
	rootCmd.AddCommand(windowCmd)
}
