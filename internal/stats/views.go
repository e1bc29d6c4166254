package stats

import (
	"sort"
	"time"
)

// MonthlyTopSize is the number of artists and tracks kept per month
const MonthlyTopSize = 10

// timestampFormats are the layouts the two exports use for play timestamps.
// The extended export writes RFC3339; the full export writes minute-granular
// local-looking times.
var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04",
}

// Totals holds the overall counters across the merged ledger
type Totals struct {
	Artists  int   `json:"distinct_artists"`
	Tracks   int   `json:"distinct_tracks"`
	MSPlayed int64 `json:"ms_played"`
	Plays    int64 `json:"plays"`
}

// TrackStats is the per-track detail nested under an artist rollup
type TrackStats struct {
	MSPlayed   int64        `json:"ms_played"`
	Plays      int64        `json:"plays"`
	Timestamps []PlayDetail `json:"timestamps"`
}

// ArtistAggregate groups a single artist's listening, nested album → track
type ArtistAggregate struct {
	Artist   string                           `json:"artist"`
	MSPlayed int64                            `json:"ms_played"`
	Plays    int64                            `json:"plays"`
	Albums   map[string]map[string]TrackStats `json:"albums"`
}

// ArtistRollup is the artist view of the merged ledger, sorted by total
// ms_played descending. Ties keep first-seen order.
type ArtistRollup []ArtistAggregate

// RankedArtist is one row of a monthly top-artists list
type RankedArtist struct {
	Artist   string `json:"artist"`
	MSPlayed int64  `json:"ms_played"`
	Plays    int64  `json:"plays"`
}

// RankedTrack is one row of a monthly top-tracks list
type RankedTrack struct {
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	Track    string `json:"track"`
	MSPlayed int64  `json:"ms_played"`
	Plays    int64  `json:"plays"`
}

// MonthTop holds the capped top lists for one calendar month
type MonthTop struct {
	Artists []RankedArtist `json:"artists"`
	Tracks  []RankedTrack  `json:"tracks"`
}

// MonthlyTopN maps "YYYY-MM" to that month's top lists
type MonthlyTopN map[string]MonthTop

// YearTrack retains the full play detail for one track within a year
type YearTrack struct {
	Album      string       `json:"album,omitempty"`
	MSPlayed   int64        `json:"ms_played"`
	Plays      int64        `json:"plays"`
	Timestamps []PlayDetail `json:"timestamps"`
}

// YearArtist groups a year's plays for one artist, uncapped
type YearArtist struct {
	MSPlayed int64                 `json:"ms_played"`
	Plays    int64                 `json:"plays"`
	Tracks   map[string]*YearTrack `json:"tracks"`
}

// YearlyBreakdown maps "YYYY" to the full artist → track detail for that year
type YearlyBreakdown map[string]map[string]*YearArtist

// Views bundles every derived view of the merged ledger.
//
// BadTimestamps counts plays whose timestamp failed to parse under the
// known export formats. Such plays are excluded from the month and year
// partitions but still contribute to the overall totals.
type Views struct {
	Totals        Totals          `json:"totals"`
	Rollup        ArtistRollup    `json:"artists"`
	Monthly       MonthlyTopN     `json:"monthly"`
	Yearly        YearlyBreakdown `json:"yearly"`
	BadTimestamps int64           `json:"bad_timestamps,omitempty"`
}

// BuildViews derives every aggregate view from the merged ledger. The
// ledger is read-only from here on; views never mutate it.
func BuildViews(l *Ledger) Views {
	monthly, badTS := BuildMonthlyTop(l, MonthlyTopSize)
	yearly, _ := BuildYearly(l)

	return Views{
		Totals:        OverallTotals(l),
		Rollup:        BuildArtistRollup(l),
		Monthly:       monthly,
		Yearly:        yearly,
		BadTimestamps: badTS,
	}
}

// OverallTotals computes distinct-artist and distinct-track counts and the
// grand ms_played / plays sums across all entries
func OverallTotals(l *Ledger) Totals {
	totals := Totals{Tracks: l.Len()}

	artists := make(map[string]struct{})
	for _, key := range l.order {
		entry := l.entries[key]
		artists[entry.Artist] = struct{}{}
		totals.MSPlayed += entry.MSPlayed
		totals.Plays += entry.Plays
	}
	totals.Artists = len(artists)

	return totals
}

// BuildArtistRollup groups ledger entries by artist, nesting album → track,
// and sorts artists by total ms_played descending. The sort is stable so
// equal totals keep their first-seen order.
func BuildArtistRollup(l *Ledger) ArtistRollup {
	index := make(map[string]int)
	rollup := make(ArtistRollup, 0, l.Len())

	for _, key := range l.order {
		entry := l.entries[key]

		i, ok := index[entry.Artist]
		if !ok {
			i = len(rollup)
			index[entry.Artist] = i
			rollup = append(rollup, ArtistAggregate{
				Artist: entry.Artist,
				Albums: make(map[string]map[string]TrackStats),
			})
		}

		agg := &rollup[i]
		agg.MSPlayed += entry.MSPlayed
		agg.Plays += entry.Plays

		tracks, ok := agg.Albums[entry.Album]
		if !ok {
			tracks = make(map[string]TrackStats)
			agg.Albums[entry.Album] = tracks
		}
		tracks[entry.Track] = TrackStats{
			MSPlayed:   entry.MSPlayed,
			Plays:      entry.Plays,
			Timestamps: entry.Timestamps,
		}
	}

	sort.SliceStable(rollup, func(i, j int) bool {
		return rollup[i].MSPlayed > rollup[j].MSPlayed
	})

	return rollup
}

// BuildMonthlyTop partitions plays by calendar year-month and keeps the top
// n artists and tracks per month by ms_played descending, ties broken by
// insertion order. Returns the partition map and the count of plays whose
// timestamp could not be parsed.
func BuildMonthlyTop(l *Ledger, n int) (MonthlyTopN, int64) {
	type monthAcc struct {
		artistIndex map[string]int
		artists     []RankedArtist
		trackIndex  map[TrackKey]int
		tracks      []RankedTrack
	}

	months := make(map[string]*monthAcc)
	var badTS int64

	for _, key := range l.order {
		entry := l.entries[key]
		for _, d := range entry.Timestamps {
			t, ok := parsePlayTime(d.TS)
			if !ok {
				badTS++
				continue
			}

			month := t.Format("2006-01")
			acc, ok := months[month]
			if !ok {
				acc = &monthAcc{
					artistIndex: make(map[string]int),
					trackIndex:  make(map[TrackKey]int),
				}
				months[month] = acc
			}

			i, ok := acc.artistIndex[entry.Artist]
			if !ok {
				i = len(acc.artists)
				acc.artistIndex[entry.Artist] = i
				acc.artists = append(acc.artists, RankedArtist{Artist: entry.Artist})
			}
			acc.artists[i].MSPlayed += d.MSPlayed
			acc.artists[i].Plays++

			j, ok := acc.trackIndex[key]
			if !ok {
				j = len(acc.tracks)
				acc.trackIndex[key] = j
				acc.tracks = append(acc.tracks, RankedTrack{
					Artist: entry.Artist,
					Album:  entry.Album,
					Track:  entry.Track,
				})
			}
			acc.tracks[j].MSPlayed += d.MSPlayed
			acc.tracks[j].Plays++
		}
	}

	top := make(MonthlyTopN, len(months))
	for month, acc := range months {
		sort.SliceStable(acc.artists, func(i, j int) bool {
			return acc.artists[i].MSPlayed > acc.artists[j].MSPlayed
		})
		sort.SliceStable(acc.tracks, func(i, j int) bool {
			return acc.tracks[i].MSPlayed > acc.tracks[j].MSPlayed
		})

		artists := acc.artists
		if len(artists) > n {
			artists = artists[:n]
		}
		tracks := acc.tracks
		if len(tracks) > n {
			tracks = tracks[:n]
		}

		top[month] = MonthTop{Artists: artists, Tracks: tracks}
	}

	return top, badTS
}

// BuildYearly partitions plays by calendar year, retaining the full
// per-artist per-track structure with every contributing play's timestamp
// detail. No cap is applied. Returns the partition map and the count of
// plays whose timestamp could not be parsed.
func BuildYearly(l *Ledger) (YearlyBreakdown, int64) {
	breakdown := make(YearlyBreakdown)
	var badTS int64

	for _, key := range l.order {
		entry := l.entries[key]
		for _, d := range entry.Timestamps {
			t, ok := parsePlayTime(d.TS)
			if !ok {
				badTS++
				continue
			}

			year := t.Format("2006")
			artists, ok := breakdown[year]
			if !ok {
				artists = make(map[string]*YearArtist)
				breakdown[year] = artists
			}

			artist, ok := artists[entry.Artist]
			if !ok {
				artist = &YearArtist{Tracks: make(map[string]*YearTrack)}
				artists[entry.Artist] = artist
			}
			artist.MSPlayed += d.MSPlayed
			artist.Plays++

			track, ok := artist.Tracks[entry.Track]
			if !ok {
				track = &YearTrack{Album: entry.Album}
				artist.Tracks[entry.Track] = track
			}
			track.MSPlayed += d.MSPlayed
			track.Plays++
			track.Timestamps = append(track.Timestamps, d)
		}
	}

	return breakdown, badTS
}

// parsePlayTime parses a play timestamp under the known export formats
func parsePlayTime(ts string) (time.Time, bool) {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
