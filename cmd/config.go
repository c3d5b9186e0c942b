package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return eris.Wrap(err, "config: encode yaml")
		}
		if err := enc.Close(); err != nil {
			return eris.Wrap(err, "config: encode yaml")
		}
		return cfg.Validate()
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
