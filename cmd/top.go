package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jfmyers9/replay/internal/config"
	"github.com/jfmyers9/replay/internal/store"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

var (
	topTracks bool
	topLimit  int
)

// topCmd represents the top command
var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show top artists or tracks from the local database",
	Long: `Query the local play-history database and print the top artists
(default) or tracks by total listening time.

The database is populated by 'replay analyze --save'.`,
	RunE: runTop,
}

func init() {
	rootCmd.AddCommand(topCmd)

	topCmd.Flags().BoolVar(&topTracks, "tracks", false, "Show top tracks instead of artists")
	topCmd.Flags().IntVarP(&topLimit, "limit", "n", 0, "Number of rows to show (default: from config, 10)")
}

func runTop(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	limit := topLimit
	if limit <= 0 {
		limit = cfg.TopLimit
	}

	s, err := store.New(filepath.Join(cfg.DataDir, "plays.db"))
	if err != nil {
		return fmt.Errorf("failed to open play store: %w", err)
	}
	defer func() { _ = s.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		fmt.Println("No plays saved yet. Run 'replay analyze --save <export>' first.")
		return nil
	}

	if topTracks {
		rows, err := s.TopTracks(ctx, limit)
		if err != nil {
			return err
		}
		printTrackTable(rows)
		return nil
	}

	rows, err := s.TopArtists(ctx, limit)
	if err != nil {
		return err
	}
	printArtistTable(rows)
	return nil
}

func printArtistTable(rows []store.ArtistRow) {
	fmt.Printf("%s  %s  %s\n", padToWidth("ARTIST", 40), padToWidth("TIME", 10), "PLAYS")
	for _, r := range rows {
		fmt.Printf("%s  %s  %d\n",
			padToWidth(r.Artist, 40),
			padToWidth(formatListeningTime(r.MSPlayed), 10),
			r.Plays,
		)
	}
}

func printTrackTable(rows []store.TrackRow) {
	fmt.Printf("%s  %s  %s  %s\n",
		padToWidth("TRACK", 36), padToWidth("ARTIST", 24), padToWidth("TIME", 10), "PLAYS")
	for _, r := range rows {
		fmt.Printf("%s  %s  %s  %d\n",
			padToWidth(r.Track, 36),
			padToWidth(r.Artist, 24),
			padToWidth(formatListeningTime(r.MSPlayed), 10),
			r.Plays,
		)
	}
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, accounting for Unicode characters.
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
// If text is shorter than width, pads with spaces.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text // no padding requested
	}

	currentWidth := runewidth.StringWidth(text)

	if currentWidth > width {
		// Truncate with "..." suffix
		ellipsis := "..."
		ellipsisWidth := runewidth.StringWidth(ellipsis)

		if width <= ellipsisWidth {
			// If width is too small, just return ellipsis truncated to width
			return runewidth.Truncate(ellipsis, width, "")
		}

		// Truncate to (width - ellipsisWidth) and add ellipsis
		truncated := runewidth.Truncate(text, width-ellipsisWidth, "")
		result := truncated + ellipsis

		// Ensure we're exactly at the target width (in case truncate was imprecise)
		resultWidth := runewidth.StringWidth(result)
		if resultWidth < width {
			padding := strings.Repeat(" ", width-resultWidth)
			return result + padding
		} else if resultWidth > width {
			return runewidth.Truncate(result, width, "")
		}
		return result
	} else if currentWidth < width {
		// Pad with spaces
		padding := strings.Repeat(" ", width-currentWidth)
		return text + padding
	}

	return text // exactly the right width
}
