package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shadowops/shintel/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fold unprocessed scan export files into the master store",
	Long: `Fold every unprocessed .csv/.xlsx file from the source directory into the
master store.

Files already recorded in the ledger are skipped, so re-running over the same
source directory is idempotent. Files that cannot be read or that contain no
usable rows are reported and retried on the next run; they are not ledgered.

The ledger is only advanced after the store snapshot persists successfully.
A run interrupted between the two writes reprocesses its files next time
(at-least-once, never "ledgered but missing from the store").

Examples:
  # Ingest with paths from .shintel.yaml
  shintel ingest

  # Explicit paths, folding oldest-modified files first
  shintel ingest --source ./src --store ./dst/destination.csv --order mtime`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if v, _ := cmd.Flags().GetString("source"); v != "" {
			cfg.SourceDir = v
		}
		if v, _ := cmd.Flags().GetString("store"); v != "" {
			cfg.StorePath = v
		}
		if v, _ := cmd.Flags().GetString("ledger"); v != "" {
			cfg.LedgerPath = v
		}
		if v, _ := cmd.Flags().GetString("order"); v != "" {
			cfg.Order = v
		}

		result, err := ingest.Run(ingest.Options{
			SourceDir:  cfg.SourceDir,
			StorePath:  cfg.StorePath,
			LedgerPath: cfg.LedgerPath,
			Order:      ingest.FileOrder(cfg.Order),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		fmt.Printf("%s Ingest run %s complete\n", green("✓"), result.RunID)
		fmt.Printf("  Files processed:   %d\n", result.FilesProcessed)
		fmt.Printf("  Already ledgered:  %d\n", result.FilesLedgered)
		fmt.Printf("  Records added:     %d\n", result.RecordsAdded)
		fmt.Printf("  Rows rejected:     %d\n", result.RowsRejected)
		fmt.Printf("  Store size:        %d\n", result.StoreSize)

		for _, skipped := range result.Skipped {
			fmt.Printf("%s Skipped %s: %s\n", yellow("⚠"), skipped.Name, skipped.Reason)
		}
	},
}

func init() {
	ingestCmd.Flags().String("source", "", "Source directory with scan export files")
	ingestCmd.Flags().String("store", "", "Master store CSV path")
	ingestCmd.Flags().String("ledger", "", "Processed-files ledger path")
	ingestCmd.Flags().String("order", "", "File fold order: name or mtime")
	rootCmd.AddCommand(ingestCmd)
}
