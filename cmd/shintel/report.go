package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shadowops/shintel/internal/report"
	"github.com/shadowops/shintel/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize open findings in the master store",
	Long: `Print an intelligence summary over the master store: open-finding totals,
severity breakdown, most frequent issues and addresses, regional
distribution, and recurrence.

Only records whose state is exactly "open" (case-insensitive, trimmed)
count as active; everything else in the free-text state column is ignored.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if v, _ := cmd.Flags().GetString("store"); v != "" {
			cfg.StorePath = v
		}

		st, err := store.Load(cfg.StorePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		report.Render(os.Stdout, report.Summarize(st.Records))
	},
}

func init() {
	reportCmd.Flags().String("store", "", "Master store CSV path")
	rootCmd.AddCommand(reportCmd)
}
