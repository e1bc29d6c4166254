package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jfmyers9/replay/internal/analyzer"
	"github.com/jfmyers9/replay/internal/config"
	"github.com/jfmyers9/replay/internal/export"
	"github.com/jfmyers9/replay/internal/report"
	"github.com/jfmyers9/replay/internal/store"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	analyzeOutDir   string
	analyzeSave     bool
	analyzeLogFile  string
	analyzeLogLevel string
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <export>...",
	Short: "Analyze one or two data-export archives",
	Long: `Analyze personal data-export archives and write aggregated listening
statistics plus ancillary account artifacts as JSON documents.

Accepts one or two exports (directories or .zip files): a bulk account
export, an extended play-history export, or one of each. When both are
given, plays reported by both exports are counted once; the extended
export is the canonical source of truth.

Output documents:
  music_stats.json     totals, artist rollup, monthly top lists, yearly breakdown
  library.json         library passthrough
  playlists.json       playlists passthrough
  search_history.json  search log with incremental typing collapsed
  wrapped.json         yearly wrapped summaries merged by year
  errors.json          unreadable files and malformed-record counts

Malformed records and unreadable files never abort the run; they are
counted and listed in errors.json.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeOutDir, "out", "o", "", "Output directory (default: from config, replay-output)")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Also save merged plays into the local database")
	analyzeCmd.Flags().StringVar(&analyzeLogFile, "log-file", "", "Log file path (default: stderr)")
	analyzeCmd.Flags().StringVar(&analyzeLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logLevel := analyzeLogLevel
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	logger := setupLogger(analyzeLogFile, logLevel)

	outDir := analyzeOutDir
	if outDir == "" {
		outDir = cfg.OutputDir
	}

	var exports []*export.Export
	for _, path := range args {
		e, err := export.Open(path)
		if err != nil {
			return err
		}
		defer e.Close()

		logger.Info().Str("export", path).Msg("Opened export")
		exports = append(exports, e)
	}

	result, err := analyzer.New(logger).Run(exports)
	if err != nil {
		return err
	}

	writer, err := report.NewWriter(outDir, logger)
	if err != nil {
		return err
	}
	if err := writer.WriteAll(result); err != nil {
		return err
	}

	if analyzeSave {
		if err := savePlays(cfg, logger, result); err != nil {
			return err
		}
	}

	fmt.Printf("Analyzed %d plays across %d tracks by %d artists (%s listened)\n",
		result.Views.Totals.Plays,
		result.Views.Totals.Tracks,
		result.Views.Totals.Artists,
		formatListeningTime(result.Views.Totals.MSPlayed),
	)
	fmt.Printf("Documents written to %s\n", outDir)

	return nil
}

// savePlays persists the merged ledger into the local play-history store
func savePlays(cfg *config.Config, logger zerolog.Logger, result *analyzer.Result) error {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	s, err := store.New(filepath.Join(cfg.DataDir, "plays.db"))
	if err != nil {
		return fmt.Errorf("failed to open play store: %w", err)
	}
	defer func() { _ = s.Close() }()

	inserted, err := s.SavePlays(context.Background(), result.Ledger)
	if err != nil {
		return fmt.Errorf("failed to save plays: %w", err)
	}

	logger.Info().Int64("inserted", inserted).Msg("Saved plays to local database")
	return nil
}

// formatListeningTime renders a millisecond total as hours and minutes
func formatListeningTime(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	hours := int64(d.Hours())
	minutes := int64(d.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	// Parse log level
	level := zerolog.InfoLevel
	switch logLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	// Set up output
	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	// Create logger
	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}
