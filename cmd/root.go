package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "replay",
	Short: "Streaming-music export analyzer",
	Long: `replay ingests personal data-export archives from a streaming-music
service and produces a deduplicated, aggregated summary of listening activity.

It understands both the bulk account export (recent play history, library,
playlists, search log, yearly wrapped summaries) and the extended
play-history export, merges the two without double-counting plays that both
report, and writes the aggregates as JSON documents.

Analyzed plays can optionally be saved into a local database and queried
with the top command.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
