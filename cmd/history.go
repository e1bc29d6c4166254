package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jfmyers9/replay/internal/config"
	"github.com/jfmyers9/replay/internal/store"
	"github.com/spf13/cobra"
)

var historyClear bool

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the local play-history database",
	Long: `Show how many plays are stored in the local database, or clear it.

The database is populated by 'replay analyze --save'.`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Delete all stored plays")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	s, err := store.New(filepath.Join(cfg.DataDir, "plays.db"))
	if err != nil {
		return fmt.Errorf("failed to open play store: %w", err)
	}
	defer func() { _ = s.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if historyClear {
		deleted, err := s.Clear(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d stored plays\n", deleted)
		return nil
	}

	count, err := s.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d plays stored\n", count)
	return nil
}
