// Package report assembles the pipeline's outputs into the conventional
// top-level documents and writes them as JSON
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/jfmyers9/replay/internal/analyzer"
	"github.com/jfmyers9/replay/internal/export"
	"github.com/jfmyers9/replay/internal/stats"
	"github.com/rs/zerolog"
)

// searchHistoryNote documents the collapser's limits in the output itself
const searchHistoryNote = "incremental-typing sequences collapsed to their final query; best-effort heuristic, not an exact reconstruction of search intent"

// MusicStats is the combined listening-statistics document
type MusicStats struct {
	Totals        stats.Totals          `json:"totals"`
	Artists       stats.ArtistRollup    `json:"artists"`
	MonthlyTop    stats.MonthlyTopN     `json:"monthly_top"`
	Yearly        stats.YearlyBreakdown `json:"yearly"`
	BadTimestamps int64                 `json:"bad_timestamps,omitempty"`
}

// SearchHistory is the collapsed search-query document
type SearchHistory struct {
	Note    string              `json:"note"`
	Queries []stats.SearchQuery `json:"queries"`
}

// ErrorLog lists everything that went wrong without stopping the run
type ErrorLog struct {
	FailedFiles      []export.FailedFile `json:"failed_files,omitempty"`
	MalformedRecords map[string]int64    `json:"malformed_records,omitempty"`
	BadTimestamps    int64               `json:"bad_timestamps,omitempty"`
}

// Writer writes output documents into a directory
type Writer struct {
	dir    string
	logger zerolog.Logger
}

// NewWriter creates a Writer targeting dir, creating it if needed
func NewWriter(dir string, logger zerolog.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Writer{
		dir:    dir,
		logger: logger.With().Str("component", "report").Logger(),
	}, nil
}

// WriteAll writes every document the result has data for. The run always
// produces whatever it could build; partial failures land in errors.json.
func (w *Writer) WriteAll(res *analyzer.Result) error {
	music := MusicStats{
		Totals:        res.Views.Totals,
		Artists:       res.Views.Rollup,
		MonthlyTop:    res.Views.Monthly,
		Yearly:        res.Views.Yearly,
		BadTimestamps: res.Views.BadTimestamps,
	}
	if err := w.writeDoc("music_stats.json", music); err != nil {
		return err
	}

	if res.Library != nil {
		if err := w.writeDoc("library.json", res.Library); err != nil {
			return err
		}
	}

	if len(res.Playlists) > 0 {
		doc := map[string]any{"playlists": res.Playlists}
		if err := w.writeDoc("playlists.json", doc); err != nil {
			return err
		}
	}

	if len(res.Searches) > 0 {
		doc := SearchHistory{Note: searchHistoryNote, Queries: res.Searches}
		if err := w.writeDoc("search_history.json", doc); err != nil {
			return err
		}
	}

	if len(res.Wrapped) > 0 {
		if err := w.writeDoc("wrapped.json", res.Wrapped); err != nil {
			return err
		}
	}

	errLog := ErrorLog{
		FailedFiles:      res.Failed,
		MalformedRecords: malformedOrNil(res.Malformed),
		BadTimestamps:    res.Views.BadTimestamps,
	}
	if err := w.writeDoc("errors.json", errLog); err != nil {
		return err
	}

	return nil
}

// writeDoc marshals one document and writes it into the output directory
func (w *Writer) writeDoc(name string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	w.logger.Info().Str("file", path).Int("bytes", len(data)).Msg("Wrote document")
	return nil
}

// malformedOrNil drops the map entirely when every counter is zero
func malformedOrNil(m map[string]int64) map[string]int64 {
	for _, n := range m {
		if n > 0 {
			return m
		}
	}
	return nil
}
