package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/abwindow/internal/generate"
)

var (
	generateOut    string
	generateSeed   uint64
	generateFormat string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write synthetic monthly, last-week and this-week extracts",
	Long: `Writes three synthetic A/B extracts relative to today:

  mock_monthly_data    8000 rows from the first of the month
  mock_last_week_data  1000 rows from the Sunday starting last week
  mock_this_week_data   500 rows from this week's Monday

The same --seed always produces the same rows.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var ext string
		switch generateFormat {
		case "xlsx":
			ext = ".xlsx"
		case "csv":
			ext = ".csv"
		default:
			return eris.Errorf("generate: --format must be xlsx or csv, got %q", generateFormat)
		}

		paths, err := generate.New(appFs, generateSeed).Generate(ctx, generateOut, ext, generate.Plan(now()))
		if err != nil {
			return err
		}
		for _, p := range paths {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), p); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateOut, "out", "input_data", "directory to write the extracts to")
	generateCmd.Flags().Uint64Var(&generateSeed, "seed", 1, "random seed")
	generateCmd.Flags().StringVar(&generateFormat, "format", "xlsx", "file format: xlsx or csv")
	rootCmd.AddCommand(generateCmd)
}
