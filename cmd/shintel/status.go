package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shadowops/shintel/internal/store"
	"github.com/shadowops/shintel/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store and ledger state",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		st, err := store.Load(cfg.StorePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		ledger, err := store.LoadLedger(cfg.LedgerPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		open := 0
		nullTimestamps := 0
		for i := range st.Records {
			if strings.ToLower(strings.TrimSpace(st.Records[i].State)) == types.StateOpen {
				open++
			}
			if st.Records[i].Timestamp == nil {
				nullTimestamps++
			}
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("Store:  %s\n", cyan(cfg.StorePath))
		fmt.Printf("  Records: %d (%d open)\n", st.Len(), open)
		if nullTimestamps > 0 {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("  %s %d record(s) without a parsable timestamp (compact will drop them)\n",
				yellow("⚠"), nullTimestamps)
		}
		fmt.Printf("Ledger: %s\n", cyan(cfg.LedgerPath))
		fmt.Printf("  Processed files: %d\n", ledger.Len())
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
