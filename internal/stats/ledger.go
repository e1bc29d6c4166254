package stats

import (
	"strings"
)

// dedupSeparator joins the fields of a dedup key. The ASCII unit separator
// is vanishingly unlikely to appear in track metadata, but a field that
// embeds it would collide with an adjacent field boundary. This is an
// accepted, documented limitation of the key scheme.
const dedupSeparator = "\x1f"

// TrackKey identifies one (artist, album, track) aggregate in a ledger
type TrackKey struct {
	Artist string
	Album  string
	Track  string
}

// PlayDetail records one contributing play for a track, carrying only the
// optional fields actually present on the originating event. Absent flags
// are nil pointers and never serialize as false.
type PlayDetail struct {
	TS               string `json:"ts"`
	ReasonStart      string `json:"reason_start,omitempty"`
	ReasonEnd        string `json:"reason_end,omitempty"`
	Shuffle          *bool  `json:"shuffle,omitempty"`
	Skipped          *bool  `json:"skipped,omitempty"`
	IncognitoMode    *bool  `json:"incognito_mode,omitempty"`
	Offline          *bool  `json:"offline,omitempty"`
	OfflineTimestamp string `json:"offline_timestamp,omitempty"`

	// MSPlayed is carried for merge accounting and time partitioning.
	// It is not part of the serialized per-play detail.
	MSPlayed int64 `json:"-"`
}

// TrackEntry is the aggregate for one track identity. Plays always equals
// len(Timestamps); MSPlayed is the exact sum of every contributing event's
// ms_played, and no event contributes more than once.
type TrackEntry struct {
	Artist     string       `json:"artist"`
	Album      string       `json:"album,omitempty"`
	Track      string       `json:"track"`
	MSPlayed   int64        `json:"ms_played"`
	Plays      int64        `json:"plays"`
	Timestamps []PlayDetail `json:"timestamps"`
}

// Ledger maps track identities to their aggregates. Entries are created on
// first sighting and only ever mutated additively. The ledger remembers
// first-seen order so that downstream sorts can break ties deterministically.
type Ledger struct {
	Source  SourceKind
	entries map[TrackKey]*TrackEntry
	order   []TrackKey
}

// NewLedger creates an empty ledger for the given source kind
func NewLedger(source SourceKind) *Ledger {
	return &Ledger{
		Source:  source,
		entries: make(map[TrackKey]*TrackEntry),
	}
}

// Add folds one normalized event into the ledger. The fold is commutative
// and associative over totals, so callers may feed events in any order.
func (l *Ledger) Add(ev PlayEvent) {
	key := TrackKey{Artist: ev.Artist, Album: ev.Album, Track: ev.Track}

	entry, ok := l.entries[key]
	if !ok {
		entry = &TrackEntry{
			Artist: ev.Artist,
			Album:  ev.Album,
			Track:  ev.Track,
		}
		l.entries[key] = entry
		l.order = append(l.order, key)
	}

	entry.MSPlayed += ev.MSPlayed
	entry.Plays++
	entry.Timestamps = append(entry.Timestamps, PlayDetail{
		TS:               ev.Timestamp,
		ReasonStart:      ev.ReasonStart,
		ReasonEnd:        ev.ReasonEnd,
		Shuffle:          ev.Shuffle,
		Skipped:          ev.Skipped,
		IncognitoMode:    ev.IncognitoMode,
		Offline:          ev.Offline,
		OfflineTimestamp: ev.OfflineTimestamp,
		MSPlayed:         ev.MSPlayed,
	})
}

// Get returns the entry for a track identity, or nil if never seen
func (l *Ledger) Get(key TrackKey) *TrackEntry {
	return l.entries[key]
}

// Len returns the number of distinct track identities in the ledger
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Keys returns the track identities in first-seen order
func (l *Ledger) Keys() []TrackKey {
	return l.order
}

// Plays returns the total number of plays across all entries
func (l *Ledger) Plays() int64 {
	var total int64
	for _, entry := range l.entries {
		total += entry.Plays
	}
	return total
}

// DedupKey computes the identity used to detect the same real-world play
// appearing in both exports: the (artist, album, track, timestamp) 4-tuple
// joined with a separator that does not occur in normal metadata
func DedupKey(artist, album, track, ts string) string {
	return strings.Join([]string{artist, album, track, ts}, dedupSeparator)
}

// dedupKey computes the dedup key for one play of an entry's track
func (e *TrackEntry) dedupKey(d PlayDetail) string {
	return DedupKey(e.Artist, e.Album, e.Track, d.TS)
}
