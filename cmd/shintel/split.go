package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shadowops/shintel/internal/split"
)

var splitCmd = &cobra.Command{
	Use:   "split <output-dir>",
	Short: "Split the master store into one file per /24 network",
	Long: `Group master store records by the first three octets of their IP address
and write one CSV per /24 prefix into the output directory.

Records without a usable address go to ` + split.InvalidFile + ` rather than
being dropped.

Example:
  shintel split ./by-network`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if v, _ := cmd.Flags().GetString("store"); v != "" {
			cfg.StorePath = v
		}

		result, err := split.Run(cfg.StorePath, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Split %d record(s) into %d file(s)\n", green("✓"), result.Records, result.Files)
		if result.Invalid > 0 {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("%s %d record(s) had no usable IP (see %s)\n", yellow("⚠"), result.Invalid, split.InvalidFile)
		}
	},
}

func init() {
	splitCmd.Flags().String("store", "", "Master store CSV path")
	rootCmd.AddCommand(splitCmd)
}
