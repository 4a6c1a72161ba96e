package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shadowops/shintel/internal/dedup"
)

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Collapse duplicate findings in the master store",
	Long: `Collapse records sharing a grouping key down to the most recent one,
summing the recurrence counter with the number of records removed.

The default grouping key is (severity, ip, protocol, port, state) — one row
per asset/port regardless of issue label. --include-issue widens the key to
ingestion's full natural key so distinct issues stay distinct.

Records that cannot be keyed (missing key field, unparsable timestamp) are
removed from the store; pass --unresolved to preserve them in a side file
instead of discarding them.

Compacting an already-compacted store removes nothing.

Examples:
  shintel compact
  shintel compact --include-issue
  shintel compact --unresolved dst/unresolved.csv`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if v, _ := cmd.Flags().GetString("store"); v != "" {
			cfg.StorePath = v
		}
		if v, _ := cmd.Flags().GetBool("include-issue"); v {
			cfg.Compact.IncludeIssue = true
		}
		if v, _ := cmd.Flags().GetString("unresolved"); v != "" {
			cfg.Compact.UnresolvedPath = v
		}

		result, err := dedup.Run(cfg.StorePath, dedup.Options{
			IncludeIssue:   cfg.Compact.IncludeIssue,
			UnresolvedPath: cfg.Compact.UnresolvedPath,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		fmt.Printf("%s Compaction complete\n", green("✓"))
		fmt.Printf("  Records kept:    %d\n", result.Kept)
		fmt.Printf("  Records removed: %d\n", result.Removed)
		if result.Unresolved > 0 {
			if cfg.Compact.UnresolvedPath != "" {
				fmt.Printf("%s %d unkeyable record(s) preserved in %s\n",
					yellow("⚠"), result.Unresolved, cfg.Compact.UnresolvedPath)
			} else {
				fmt.Printf("%s %d unkeyable record(s) dropped\n", yellow("⚠"), result.Unresolved)
			}
		}
	},
}

func init() {
	compactCmd.Flags().String("store", "", "Master store CSV path")
	compactCmd.Flags().Bool("include-issue", false, "Group by the full natural key, including issue")
	compactCmd.Flags().String("unresolved", "", "Preserve unkeyable records in this file instead of dropping them")
	rootCmd.AddCommand(compactCmd)
}
