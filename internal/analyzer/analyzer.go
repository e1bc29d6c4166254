// Package analyzer runs the full analysis pipeline: raw export records are
// normalized, folded into per-source ledgers, merged with cross-source
// deduplication, and rolled up into the aggregate views. Ancillary account
// artifacts are passed through alongside.
package analyzer

import (
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/jfmyers9/replay/internal/export"
	"github.com/jfmyers9/replay/internal/stats"
	"github.com/rs/zerolog"
)

// ErrNoHistory is returned when none of the supplied exports contains a
// recognizable play history. This is fatal before any processing begins.
var ErrNoHistory = fmt.Errorf("analyzer: no play history found; expected a bulk account export (StreamingHistory*.json), an extended history export (endsong_*.json), or one of each")

// Result is everything the pipeline produced, ready for serialization
type Result struct {
	Ledger   *stats.Ledger
	Views    stats.Views
	Searches []stats.SearchQuery

	Library   json.RawMessage
	Playlists []json.RawMessage
	Wrapped   map[string]json.RawMessage

	// Malformed counts records discarded per source kind; Failed lists
	// archive members that could not be read at all. Neither aborts a run.
	Malformed map[string]int64
	Failed    []export.FailedFile
}

// Analyzer coordinates the pipeline across one or two opened exports
type Analyzer struct {
	logger zerolog.Logger
}

// New creates an Analyzer
func New(logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		logger: logger.With().Str("component", "analyzer").Logger(),
	}
}

// Run executes the pipeline. It validates the input combination first:
// at most one export per source kind, and at least one kind present.
func (a *Analyzer) Run(exports []*export.Export) (*Result, error) {
	fullSrc, extendedSrc, err := resolveSources(exports)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Malformed: make(map[string]int64),
	}

	// Each source builds into its own ledger, so the two builds can run
	// concurrently without synchronization. The merge below is the join.
	var (
		wg                sync.WaitGroup
		fullLedger        *stats.Ledger
		extendedLedger    *stats.Ledger
		fullMalformed     int64
		extendedMalformed int64
	)

	if fullSrc != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fullLedger, fullMalformed = a.buildLedger(fullSrc, stats.SourceFull)
		}()
	}
	if extendedSrc != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			extendedLedger, extendedMalformed = a.buildLedger(extendedSrc, stats.SourceExtended)
		}()
	}
	wg.Wait()

	if fullLedger != nil {
		result.Malformed[stats.SourceFull.String()] = fullMalformed
	}
	if extendedLedger != nil {
		result.Malformed[stats.SourceExtended.String()] = extendedMalformed
	}

	result.Ledger = stats.Merge(extendedLedger, fullLedger)
	result.Views = stats.BuildViews(result.Ledger)

	a.logger.Info().
		Int("tracks", result.Ledger.Len()).
		Int64("plays", result.Views.Totals.Plays).
		Int64("bad_timestamps", result.Views.BadTimestamps).
		Msg("Merged play history")

	a.collectArtifacts(exports, result)

	for _, e := range exports {
		result.Failed = append(result.Failed, e.Failed()...)
	}
	if len(result.Failed) > 0 {
		a.logger.Warn().Int("count", len(result.Failed)).Msg("Some export members could not be read")
	}

	return result, nil
}

// resolveSources picks which export supplies each history kind and rejects
// invalid combinations before any processing starts
func resolveSources(exports []*export.Export) (fullSrc, extendedSrc *export.Export, err error) {
	for _, e := range exports {
		if e.HasKind(stats.SourceFull) {
			if fullSrc != nil {
				return nil, nil, fmt.Errorf("analyzer: both %s and %s contain full play history; expected at most one full-history export and one extended-history export", fullSrc.Path, e.Path)
			}
			fullSrc = e
		}
		if e.HasKind(stats.SourceExtended) {
			if extendedSrc != nil {
				return nil, nil, fmt.Errorf("analyzer: both %s and %s contain extended play history; expected at most one full-history export and one extended-history export", extendedSrc.Path, e.Path)
			}
			extendedSrc = e
		}
	}

	if fullSrc == nil && extendedSrc == nil {
		return nil, nil, ErrNoHistory
	}
	return fullSrc, extendedSrc, nil
}

// buildLedger folds every record of one source kind into a fresh ledger,
// counting malformed records instead of failing on them
func (a *Analyzer) buildLedger(src *export.Export, kind stats.SourceKind) (*stats.Ledger, int64) {
	ledger := stats.NewLedger(kind)
	var malformed int64

	src.EachPlayRecord(kind, func(raw map[string]any) {
		ev, err := stats.Normalize(raw, kind)
		if err != nil {
			malformed++
			return
		}
		ledger.Add(ev)
	})

	a.logger.Info().
		Str("source", kind.String()).
		Str("export", src.Path).
		Int("tracks", ledger.Len()).
		Int64("plays", ledger.Plays()).
		Int64("malformed", malformed).
		Msg("Built source ledger")

	return ledger, malformed
}

// collectArtifacts gathers the non-history account artifacts from whichever
// export carries them. The search log is collapsed here; everything else
// passes through as raw JSON.
func (a *Analyzer) collectArtifacts(exports []*export.Export, result *Result) {
	for _, e := range exports {
		if result.Library == nil {
			result.Library = e.Library()
		}
		result.Playlists = append(result.Playlists, e.Playlists()...)

		for year, blob := range e.Wrapped() {
			if result.Wrapped == nil {
				result.Wrapped = make(map[string]json.RawMessage)
			}
			if _, ok := result.Wrapped[year]; !ok {
				result.Wrapped[year] = blob
			}
		}

		if queries := e.SearchQueries(); len(queries) > 0 {
			collapsed := stats.CollapseSearches(queries, nil)
			a.logger.Info().
				Int("raw", len(queries)).
				Int("collapsed", len(collapsed)).
				Msg("Collapsed search history")
			result.Searches = append(result.Searches, collapsed...)
		}
	}
}
