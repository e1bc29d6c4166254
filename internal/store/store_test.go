package store

import (
	"context"
	"os"
	"testing"

	"github.com/jfmyers9/replay/internal/stats"
)

// createTestStore creates an in-memory SQLite store for testing
func createTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// testLedger builds a small merged ledger for store tests
func testLedger(t *testing.T) *stats.Ledger {
	t.Helper()

	ledger := stats.NewLedger(stats.SourceExtended)
	add := func(artist, album, track, ts string, ms int64) {
		ledger.Add(stats.PlayEvent{
			Artist: artist, Album: album, Track: track,
			Timestamp: ts, MSPlayed: ms, SourceKind: stats.SourceExtended,
		})
	}

	add("Radiohead", "OK Computer", "Airbag", "2023-01-01T10:00:00Z", 5000)
	add("Radiohead", "OK Computer", "Airbag", "2023-01-02T10:00:00Z", 5000)
	add("Radiohead", "Kid A", "Idioteque", "2023-01-03T10:00:00Z", 3000)
	add("Portishead", "Dummy", "Roads", "2023-01-04T10:00:00Z", 4000)

	return ledger
}

func TestNewStore(t *testing.T) {
	t.Run("in-memory database", func(t *testing.T) {
		s, err := New(":memory:")
		if err != nil {
			t.Fatalf("failed to create in-memory store: %v", err)
		}
		defer func() { _ = s.Close() }()

		if s.db == nil {
			t.Error("store database is nil")
		}
	})

	t.Run("file-based database", func(t *testing.T) {
		tmpfile, err := os.CreateTemp("", "replay-test-*.db")
		if err != nil {
			t.Fatalf("failed to create temp file: %v", err)
		}
		_ = tmpfile.Close()
		defer func() { _ = os.Remove(tmpfile.Name()) }()

		s, err := New(tmpfile.Name())
		if err != nil {
			t.Fatalf("failed to create file-based store: %v", err)
		}
		defer func() { _ = s.Close() }()

		if s.db == nil {
			t.Error("store database is nil")
		}
	})
}

func TestSavePlays(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	inserted, err := s.SavePlays(ctx, testLedger(t))
	if err != nil {
		t.Fatalf("SavePlays failed: %v", err)
	}
	if inserted != 4 {
		t.Errorf("inserted = %d, want 4", inserted)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 4 {
		t.Errorf("Count = %d, want 4", count)
	}
}

func TestSavePlaysIsIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.SavePlays(ctx, testLedger(t)); err != nil {
		t.Fatalf("first SavePlays failed: %v", err)
	}

	inserted, err := s.SavePlays(ctx, testLedger(t))
	if err != nil {
		t.Fatalf("second SavePlays failed: %v", err)
	}
	if inserted != 0 {
		t.Errorf("second save inserted = %d, want 0 (plays unique by identity key)", inserted)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 4 {
		t.Errorf("Count = %d, want 4 after duplicate save", count)
	}
}

func TestTopArtists(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.SavePlays(ctx, testLedger(t)); err != nil {
		t.Fatalf("SavePlays failed: %v", err)
	}

	rows, err := s.TopArtists(ctx, 10)
	if err != nil {
		t.Fatalf("TopArtists failed: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Artist != "Radiohead" {
		t.Errorf("top artist = %q, want Radiohead", rows[0].Artist)
	}
	if rows[0].MSPlayed != 13000 || rows[0].Plays != 3 {
		t.Errorf("top artist totals = (%d, %d), want (13000, 3)", rows[0].MSPlayed, rows[0].Plays)
	}
	if rows[1].Artist != "Portishead" {
		t.Errorf("second artist = %q, want Portishead", rows[1].Artist)
	}
}

func TestTopTracks(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.SavePlays(ctx, testLedger(t)); err != nil {
		t.Fatalf("SavePlays failed: %v", err)
	}

	rows, err := s.TopTracks(ctx, 2)
	if err != nil {
		t.Fatalf("TopTracks failed: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (limit applied)", len(rows))
	}
	if rows[0].Track != "Airbag" {
		t.Errorf("top track = %q, want Airbag", rows[0].Track)
	}
	if rows[0].MSPlayed != 10000 || rows[0].Plays != 2 {
		t.Errorf("top track totals = (%d, %d), want (10000, 2)", rows[0].MSPlayed, rows[0].Plays)
	}
}

func TestClear(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.SavePlays(ctx, testLedger(t)); err != nil {
		t.Fatalf("SavePlays failed: %v", err)
	}

	deleted, err := s.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if deleted != 4 {
		t.Errorf("deleted = %d, want 4", deleted)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Count = %d, want 0 after clear", count)
	}
}
