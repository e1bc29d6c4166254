package stats

import (
	"fmt"
)

// SourceKind identifies which export a play event came from
type SourceKind int

const (
	// SourceFull is the lighter-weight account-data export containing a
	// limited recent play history (StreamingHistory*.json)
	SourceFull SourceKind = iota

	// SourceExtended is the extended streaming-history export containing
	// complete historical play-by-play detail (endsong_*.json)
	SourceExtended
)

// String returns a human-readable name for the source kind
func (k SourceKind) String() string {
	switch k {
	case SourceFull:
		return "full"
	case SourceExtended:
		return "extended"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// ErrMalformedRecord is returned by Normalize when a raw record is missing
// required fields or contains an unparsable ms_played value. Callers count
// these records and continue; a malformed record never aborts the run.
var ErrMalformedRecord = fmt.Errorf("stats: malformed record")

// PlayEvent is one playback occurrence in canonical form, regardless of
// which export it was read from
type PlayEvent struct {
	Artist    string
	Album     string // empty for the full source, which has no album field
	Track     string
	MSPlayed  int64
	Timestamp string // as found in the export, not reparsed

	// Extended-source-only fields; zero values mean "absent"
	ReasonStart      string
	ReasonEnd        string
	Shuffle          *bool
	Skipped          *bool
	IncognitoMode    *bool
	Offline          *bool
	OfflineTimestamp string

	SourceKind SourceKind
}

// Normalize converts a raw export record into a canonical PlayEvent.
//
// The two export kinds use different field names for the same data:
// the extended export uses ts / ms_played / master_metadata_track_name,
// the full export uses endTime / msPlayed / trackName. Both map onto the
// same PlayEvent shape.
//
// Returns ErrMalformedRecord when the track name or timestamp is absent,
// or when ms_played is missing or not a non-negative integer. Normalize is
// a pure function; it never mutates the raw record.
func Normalize(raw map[string]any, kind SourceKind) (PlayEvent, error) {
	ev := PlayEvent{SourceKind: kind}

	switch kind {
	case SourceExtended:
		ev.Track = stringField(raw, "master_metadata_track_name")
		ev.Artist = stringField(raw, "master_metadata_album_artist_name")
		ev.Album = stringField(raw, "master_metadata_album_album_name")
		ev.Timestamp = stringField(raw, "ts")
		ev.ReasonStart = stringField(raw, "reason_start")
		ev.ReasonEnd = stringField(raw, "reason_end")
		ev.OfflineTimestamp = stringField(raw, "offline_timestamp")
		ev.Shuffle = boolField(raw, "shuffle")
		ev.Skipped = boolField(raw, "skipped")
		ev.IncognitoMode = boolField(raw, "incognito_mode")
		ev.Offline = boolField(raw, "offline")

		ms, ok := intField(raw, "ms_played")
		if !ok {
			return PlayEvent{}, fmt.Errorf("%w: missing or invalid ms_played", ErrMalformedRecord)
		}
		ev.MSPlayed = ms

	default:
		ev.Track = stringField(raw, "trackName")
		ev.Artist = stringField(raw, "artistName")
		ev.Timestamp = stringField(raw, "endTime")

		ms, ok := intField(raw, "msPlayed")
		if !ok {
			return PlayEvent{}, fmt.Errorf("%w: missing or invalid msPlayed", ErrMalformedRecord)
		}
		ev.MSPlayed = ms
	}

	if ev.Track == "" {
		return PlayEvent{}, fmt.Errorf("%w: missing track name", ErrMalformedRecord)
	}
	if ev.Timestamp == "" {
		return PlayEvent{}, fmt.Errorf("%w: missing timestamp", ErrMalformedRecord)
	}

	return ev, nil
}

// stringField extracts a string value from a raw record, returning ""
// for absent or null fields
func stringField(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// boolField extracts an optional boolean, returning nil when the field is
// absent or null so that absent flags stay absent in the output
func boolField(raw map[string]any, key string) *bool {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}

// intField extracts a non-negative integer. JSON numbers decode as float64,
// but exports produced by other tooling may carry int or int64 values too.
func intField(raw map[string]any, key string) (int64, bool) {
	v, ok := raw[key]
	if !ok {
		return 0, false
	}

	var n int64
	switch t := v.(type) {
	case float64:
		n = int64(t)
	case int:
		n = int64(t)
	case int64:
		n = t
	default:
		return 0, false
	}

	if n < 0 {
		return 0, false
	}
	return n, true
}
