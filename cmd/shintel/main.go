package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shadowops/shintel/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "shintel",
	Short: "Merge vulnerability-scan exports into a deduplicated master record store",
	Long: `shintel ingests periodic vulnerability-scan export files into a single
append-only master store, suppressing duplicate findings while tracking how
many times each finding has recurred across scans.

Typical flow:

  shintel fetch               # download new report files into the source dir
  shintel ingest              # fold unprocessed files into the store
  shintel report              # summarize open findings
  shintel compact             # collapse accumulated duplicates

Configuration is read from .shintel.yaml (see --config); flags override it.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default .shintel.yaml)")
}

// loadConfig loads the effective configuration or exits. Commands call this
// before applying their flag overrides.
func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
