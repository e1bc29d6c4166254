package stats

import (
	"errors"
	"testing"
)

func TestNormalizeExtended(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		want    PlayEvent
		wantErr bool
	}{
		{
			name: "complete record",
			raw: map[string]any{
				"ts":                                "2023-04-01T12:30:00Z",
				"ms_played":                         float64(215000),
				"master_metadata_track_name":        "Paranoid Android",
				"master_metadata_album_artist_name": "Radiohead",
				"master_metadata_album_album_name":  "OK Computer",
				"reason_start":                      "clickrow",
				"reason_end":                        "trackdone",
				"shuffle":                           false,
				"skipped":                           false,
				"offline":                           true,
				"incognito_mode":                    false,
			},
			want: PlayEvent{
				Artist:      "Radiohead",
				Album:       "OK Computer",
				Track:       "Paranoid Android",
				MSPlayed:    215000,
				Timestamp:   "2023-04-01T12:30:00Z",
				ReasonStart: "clickrow",
				ReasonEnd:   "trackdone",
				SourceKind:  SourceExtended,
			},
		},
		{
			name: "minimal record without optional fields",
			raw: map[string]any{
				"ts":                                "2023-04-01T12:30:00Z",
				"ms_played":                         float64(1000),
				"master_metadata_track_name":        "Karma Police",
				"master_metadata_album_artist_name": "Radiohead",
			},
			want: PlayEvent{
				Artist:     "Radiohead",
				Track:      "Karma Police",
				MSPlayed:   1000,
				Timestamp:  "2023-04-01T12:30:00Z",
				SourceKind: SourceExtended,
			},
		},
		{
			name: "podcast episode with null track name",
			raw: map[string]any{
				"ts":                         "2023-04-01T12:30:00Z",
				"ms_played":                  float64(1000),
				"master_metadata_track_name": nil,
				"episode_name":               "Episode 12",
			},
			wantErr: true,
		},
		{
			name: "missing timestamp",
			raw: map[string]any{
				"ms_played":                  float64(1000),
				"master_metadata_track_name": "Airbag",
			},
			wantErr: true,
		},
		{
			name: "missing ms_played",
			raw: map[string]any{
				"ts":                         "2023-04-01T12:30:00Z",
				"master_metadata_track_name": "Airbag",
			},
			wantErr: true,
		},
		{
			name: "non-numeric ms_played",
			raw: map[string]any{
				"ts":                         "2023-04-01T12:30:00Z",
				"ms_played":                  "lots",
				"master_metadata_track_name": "Airbag",
			},
			wantErr: true,
		},
		{
			name: "negative ms_played",
			raw: map[string]any{
				"ts":                         "2023-04-01T12:30:00Z",
				"ms_played":                  float64(-5),
				"master_metadata_track_name": "Airbag",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw, SourceExtended)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrMalformedRecord) {
					t.Errorf("error = %v, want ErrMalformedRecord", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize returned error: %v", err)
			}

			if got.Artist != tt.want.Artist || got.Album != tt.want.Album ||
				got.Track != tt.want.Track || got.MSPlayed != tt.want.MSPlayed ||
				got.Timestamp != tt.want.Timestamp {
				t.Errorf("Normalize = %+v, want %+v", got, tt.want)
			}
			if got.SourceKind != SourceExtended {
				t.Errorf("SourceKind = %v, want %v", got.SourceKind, SourceExtended)
			}
		})
	}
}

func TestNormalizeFull(t *testing.T) {
	t.Run("complete record", func(t *testing.T) {
		raw := map[string]any{
			"endTime":    "2023-04-01 12:30",
			"artistName": "Radiohead",
			"trackName":  "Paranoid Android",
			"msPlayed":   float64(215000),
		}

		got, err := Normalize(raw, SourceFull)
		if err != nil {
			t.Fatalf("Normalize returned error: %v", err)
		}

		if got.Artist != "Radiohead" {
			t.Errorf("Artist = %q, want %q", got.Artist, "Radiohead")
		}
		if got.Track != "Paranoid Android" {
			t.Errorf("Track = %q, want %q", got.Track, "Paranoid Android")
		}
		if got.Album != "" {
			t.Errorf("Album = %q, want empty (full source has no album)", got.Album)
		}
		if got.MSPlayed != 215000 {
			t.Errorf("MSPlayed = %d, want 215000", got.MSPlayed)
		}
		if got.Timestamp != "2023-04-01 12:30" {
			t.Errorf("Timestamp = %q, want %q", got.Timestamp, "2023-04-01 12:30")
		}
		if got.SourceKind != SourceFull {
			t.Errorf("SourceKind = %v, want SourceFull", got.SourceKind)
		}
	})

	t.Run("missing track name", func(t *testing.T) {
		raw := map[string]any{
			"endTime":  "2023-04-01 12:30",
			"msPlayed": float64(1000),
		}
		if _, err := Normalize(raw, SourceFull); !errors.Is(err, ErrMalformedRecord) {
			t.Errorf("error = %v, want ErrMalformedRecord", err)
		}
	})

	t.Run("integer msPlayed", func(t *testing.T) {
		// Records re-emitted by other tooling may carry real integers
		raw := map[string]any{
			"endTime":    "2023-04-01 12:30",
			"artistName": "Radiohead",
			"trackName":  "Airbag",
			"msPlayed":   int64(4000),
		}
		got, err := Normalize(raw, SourceFull)
		if err != nil {
			t.Fatalf("Normalize returned error: %v", err)
		}
		if got.MSPlayed != 4000 {
			t.Errorf("MSPlayed = %d, want 4000", got.MSPlayed)
		}
	})
}

func TestNormalizeOptionalFlags(t *testing.T) {
	t.Run("present flags are carried", func(t *testing.T) {
		raw := map[string]any{
			"ts":                                "2023-04-01T12:30:00Z",
			"ms_played":                         float64(1000),
			"master_metadata_track_name":        "Airbag",
			"master_metadata_album_artist_name": "Radiohead",
			"shuffle":                           true,
			"skipped":                           false,
		}
		got, err := Normalize(raw, SourceExtended)
		if err != nil {
			t.Fatalf("Normalize returned error: %v", err)
		}

		if got.Shuffle == nil || !*got.Shuffle {
			t.Error("Shuffle should be present and true")
		}
		if got.Skipped == nil || *got.Skipped {
			t.Error("Skipped should be present and false")
		}
	})

	t.Run("absent and null flags stay absent", func(t *testing.T) {
		raw := map[string]any{
			"ts":                                "2023-04-01T12:30:00Z",
			"ms_played":                         float64(1000),
			"master_metadata_track_name":        "Airbag",
			"master_metadata_album_artist_name": "Radiohead",
			"offline":                           nil,
		}
		got, err := Normalize(raw, SourceExtended)
		if err != nil {
			t.Fatalf("Normalize returned error: %v", err)
		}

		if got.Shuffle != nil {
			t.Error("absent shuffle flag should be nil")
		}
		if got.Offline != nil {
			t.Error("null offline flag should be nil")
		}
	})
}

// Malformed records are counted by the caller and never abort a batch
func TestMalformedRecordTolerance(t *testing.T) {
	raws := []map[string]any{
		{"endTime": "2023-04-01 12:30", "artistName": "A", "trackName": "One", "msPlayed": float64(1000)},
		{"endTime": "2023-04-01 12:35", "artistName": "A", "trackName": "Two", "msPlayed": float64(1000)},
		{"artistName": "A", "trackName": "Three", "msPlayed": float64(1000)}, // no timestamp
		{"endTime": "2023-04-01 12:45", "artistName": "B", "trackName": "Four", "msPlayed": float64(1000)},
		{"endTime": "2023-04-01 12:50", "artistName": "B", "trackName": "Five", "msPlayed": float64(1000)},
	}

	ledger := NewLedger(SourceFull)
	var malformed int
	for _, raw := range raws {
		ev, err := Normalize(raw, SourceFull)
		if err != nil {
			malformed++
			continue
		}
		ledger.Add(ev)
	}

	if malformed != 1 {
		t.Errorf("malformed = %d, want 1", malformed)
	}
	if got := ledger.Plays(); got != 4 {
		t.Errorf("total plays = %d, want 4", got)
	}
}
