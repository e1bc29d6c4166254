package stats

import (
	"sort"
	"strings"
)

// SearchQuery is one raw entry from the export's search-query log
type SearchQuery struct {
	Query     string `json:"query"`
	Timestamp string `json:"timestamp"`
}

// PrefixTest reports whether next looks like a continuation of prev, the
// user still typing the same search rather than starting a new one
type PrefixTest func(prev, next string) bool

// DefaultPrefixTest treats next as a continuation when it begins with prev
// under a case-insensitive comparison. This is a best-effort heuristic: it
// may under- or over-collapse for queries with diacritics or punctuation
// variance, and makes no attempt to reconstruct intent beyond the prefix
// relationship.
func DefaultPrefixTest(prev, next string) bool {
	if prev == "" {
		return false
	}
	return strings.HasPrefix(strings.ToLower(next), strings.ToLower(prev))
}

// CollapseSearches reduces a search-query log to the final query of each
// incremental-typing chain.
//
// Queries are ordered by timestamp, then scanned pairwise: when a query
// extends the current candidate (per the prefix test) it replaces the
// candidate without being separately retained; when it does not, the
// candidate is emitted and the new query starts a fresh chain. Only the
// last query of an unbroken extension chain appears in the output.
//
// A nil test uses DefaultPrefixTest.
func CollapseSearches(queries []SearchQuery, test PrefixTest) []SearchQuery {
	if len(queries) == 0 {
		return nil
	}
	if test == nil {
		test = DefaultPrefixTest
	}

	sorted := make([]SearchQuery, len(queries))
	copy(sorted, queries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	collapsed := make([]SearchQuery, 0, len(sorted))
	candidate := sorted[0]

	for _, q := range sorted[1:] {
		if test(candidate.Query, q.Query) {
			candidate = q
			continue
		}
		collapsed = append(collapsed, candidate)
		candidate = q
	}
	collapsed = append(collapsed, candidate)

	return collapsed
}
