// Package export reads streaming-service data-export archives and hands
// their contents to the stats engine as in-memory record sequences.
//
// Two export flavors exist: the bulk account export (StreamingHistory
// files plus library, playlists, search and wrapped artifacts) and the
// extended play-history export (endsong / Streaming_History_Audio files).
// Files are discovered by name pattern; unreadable members are recorded
// as failed and skipped, never fatal.
package export

import (
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/jfmyers9/replay/internal/stats"
)

var wrappedYear = regexp.MustCompile(`(\d{4})`)

// FailedFile records an archive member that could not be read or parsed.
// Failures are reported in the error log, not raised.
type FailedFile struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// Export is one opened data-export archive with its members classified by
// name pattern
type Export struct {
	Path string

	archive   Archive
	full      []string
	extended  []string
	library   []string
	playlists []string
	search    []string
	wrapped   map[string][]string // year → members

	// failMu guards failed: when one archive carries both history kinds,
	// the two ledger builds read it concurrently
	failMu sync.Mutex
	failed []FailedFile
}

// Open opens the archive at path and classifies its members.
// Close must be called when done.
func Open(path string) (*Export, error) {
	archive, err := OpenArchive(path)
	if err != nil {
		return nil, err
	}

	e := &Export{
		Path:    path,
		archive: archive,
		wrapped: make(map[string][]string),
	}
	for _, name := range archive.Names() {
		e.classify(name)
	}

	sort.Strings(e.full)
	sort.Strings(e.extended)
	sort.Strings(e.playlists)

	return e, nil
}

// Close releases the underlying archive
func (e *Export) Close() error {
	return e.archive.Close()
}

// classify sorts one member name into the known file families. Unrecognized
// members are ignored; exports carry many files this tool has no use for.
func (e *Export) classify(name string) {
	base := path.Base(name)
	if !strings.EqualFold(path.Ext(base), ".json") {
		return
	}

	switch {
	case strings.HasPrefix(base, "Streaming_History_Audio"), strings.HasPrefix(base, "endsong"):
		e.extended = append(e.extended, name)
	case strings.HasPrefix(base, "StreamingHistory"):
		e.full = append(e.full, name)
	case base == "YourLibrary.json":
		e.library = append(e.library, name)
	case strings.HasPrefix(base, "Playlist"):
		e.playlists = append(e.playlists, name)
	case base == "SearchQueries.json":
		e.search = append(e.search, name)
	case strings.Contains(base, "Wrapped"):
		if m := wrappedYear.FindString(base); m != "" {
			e.wrapped[m] = append(e.wrapped[m], name)
		}
	}
}

// HasKind reports whether the archive carries play history of the given kind
func (e *Export) HasKind(kind stats.SourceKind) bool {
	if kind == stats.SourceExtended {
		return len(e.extended) > 0
	}
	return len(e.full) > 0
}

// Kinds returns the play-history source kinds present in this archive
func (e *Export) Kinds() []stats.SourceKind {
	var kinds []stats.SourceKind
	if len(e.full) > 0 {
		kinds = append(kinds, stats.SourceFull)
	}
	if len(e.extended) > 0 {
		kinds = append(kinds, stats.SourceExtended)
	}
	return kinds
}

// Failed returns the members that could not be read or parsed so far
func (e *Export) Failed() []FailedFile {
	e.failMu.Lock()
	defer e.failMu.Unlock()
	return e.failed
}

// recordFailure notes a member that could not be read or parsed
func (e *Export) recordFailure(name, reason string) {
	e.failMu.Lock()
	defer e.failMu.Unlock()
	e.failed = append(e.failed, FailedFile{File: name, Reason: reason})
}

// EachPlayRecord reads every play-history record of the given kind and
// passes it to fn, one file at a time. A member that cannot be read or
// parsed is recorded as failed and skipped; remaining files are still
// processed.
func (e *Export) EachPlayRecord(kind stats.SourceKind, fn func(raw map[string]any)) {
	names := e.full
	if kind == stats.SourceExtended {
		names = e.extended
	}

	for _, name := range names {
		records, err := e.readRecords(name)
		if err != nil {
			e.recordFailure(name, err.Error())
			continue
		}
		for _, raw := range records {
			fn(raw)
		}
	}
}

// readRecords decodes one history file, an array of loosely-typed objects
func (e *Export) readRecords(name string) ([]map[string]any, error) {
	data, err := e.readMember(name)
	if err != nil {
		return nil, err
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return records, nil
}

// Library returns the raw library blob, or nil when the archive has none
func (e *Export) Library() json.RawMessage {
	return e.rawMember(e.library)
}

// Playlists returns the raw playlist blobs in file order
func (e *Export) Playlists() []json.RawMessage {
	var out []json.RawMessage
	for _, name := range e.playlists {
		if raw := e.rawMember([]string{name}); raw != nil {
			out = append(out, raw)
		}
	}
	return out
}

// Wrapped returns the yearly wrapped blobs keyed by the 4-digit year
// extracted from each file name
func (e *Export) Wrapped() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage)
	for year, names := range e.wrapped {
		if raw := e.rawMember(names); raw != nil {
			out[year] = raw
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SearchQueries reads and reshapes the raw search-query log. The export
// names its fields searchQuery / searchTime; they map onto the collapser's
// input shape.
func (e *Export) SearchQueries() []stats.SearchQuery {
	var out []stats.SearchQuery
	for _, name := range e.search {
		data, err := e.readMember(name)
		if err != nil {
			e.recordFailure(name, err.Error())
			continue
		}

		var entries []struct {
			SearchQuery string `json:"searchQuery"`
			SearchTime  string `json:"searchTime"`
		}
		if err := json.Unmarshal(data, &entries); err != nil {
			e.recordFailure(name, fmt.Sprintf("failed to parse %s: %v", name, err))
			continue
		}

		for _, entry := range entries {
			out = append(out, stats.SearchQuery{Query: entry.SearchQuery, Timestamp: entry.SearchTime})
		}
	}
	return out
}

// rawMember reads the first readable member of names as a validated raw
// JSON blob, recording failures
func (e *Export) rawMember(names []string) json.RawMessage {
	for _, name := range names {
		data, err := e.readMember(name)
		if err != nil {
			e.recordFailure(name, err.Error())
			continue
		}
		if !json.Valid(data) {
			e.recordFailure(name, "invalid JSON")
			continue
		}
		return json.RawMessage(data)
	}
	return nil
}

// readMember reads one archive member fully into memory
func (e *Export) readMember(name string) ([]byte, error) {
	rc, err := e.archive.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}
