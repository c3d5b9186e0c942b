package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/abwindow/internal/config"
)

var cfg *config.Config

// appFs is the filesystem every command reads from and writes to.
var appFs = afero.NewOsFs()

// now is the clock used when no reference date is given.
var now = time.Now

var rootCmd = &cobra.Command{
	Use:   "abwindow",
	Short: "Consolidate A/B experiment extracts into a rolling analysis window",
	Long: `Reads periodic experiment extracts (CSV or XLSX), concatenates them, keeps the rows
inside a rolling window anchored on a fixed weekday, derives c_d_ratio and
days_from_start, and writes one consolidated file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
