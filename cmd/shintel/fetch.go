package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shadowops/shintel/internal/fetch"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download report files into the source directory",
	Long: `Download scan report files from a newline-delimited link list into the
source directory, ready for ingest.

Downloads are rate-limited and run with bounded concurrency. Zip archives
are extracted in place; files already present are left untouched, so fetch
is safe to re-run. Failures are per-link: one dead URL never aborts the run.

SHINTEL_FETCH_TOKEN (environment or .env) is sent as a bearer token when set.

Examples:
  shintel fetch
  shintel fetch --links reports/links.txt --dest ./src`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if v, _ := cmd.Flags().GetString("links"); v != "" {
			cfg.Fetch.LinksFile = v
		}
		dest := cfg.SourceDir
		if v, _ := cmd.Flags().GetString("dest"); v != "" {
			dest = v
		}

		// Credentials live in the environment, optionally seeded from a
		// local .env. A missing .env is fine.
		_ = godotenv.Load()

		urls, err := fetch.ReadURLList(cfg.Fetch.LinksFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(urls) == 0 {
			fmt.Println("No links to fetch")
			return
		}

		result, err := fetch.Run(context.Background(), urls, fetch.Options{
			DestDir:           dest,
			Concurrency:       cfg.Fetch.Concurrency,
			RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
			AuthToken:         os.Getenv("SHINTEL_FETCH_TOKEN"),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		fmt.Printf("%s Fetch complete\n", green("✓"))
		fmt.Printf("  Downloaded: %d\n", result.Downloaded)
		fmt.Printf("  Extracted:  %d\n", result.Extracted)
		fmt.Printf("  Skipped:    %d\n", result.Skipped)
		if result.Failed > 0 {
			fmt.Printf("%s Failed:     %d (see log)\n", red("✗"), result.Failed)
		}
	},
}

func init() {
	fetchCmd.Flags().String("links", "", "Newline-delimited download link list")
	fetchCmd.Flags().String("dest", "", "Destination directory (default: source_dir)")
	rootCmd.AddCommand(fetchCmd)
}
