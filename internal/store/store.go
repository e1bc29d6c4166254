// Package store persists merged play history in a local SQLite database so
// listening stats can be queried without re-reading the export archives
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jfmyers9/replay/internal/stats"
	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed play-history store
type Store struct {
	db *sql.DB
}

// ArtistRow is one row of a top-artists query
type ArtistRow struct {
	Artist   string
	MSPlayed int64
	Plays    int64
}

// TrackRow is one row of a top-tracks query
type TrackRow struct {
	Artist   string
	Album    string
	Track    string
	MSPlayed int64
	Plays    int64
}

// New opens (or creates) the play-history database at dbPath
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection keeps in-memory databases consistent and is
	// plenty for this batch workload
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA cache_size = -64000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	// Plays are unique by identity key, so re-saving the same export is
	// idempotent
	schema := `
		CREATE TABLE IF NOT EXISTS plays (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			artist TEXT NOT NULL,
			album TEXT NOT NULL DEFAULT '',
			track TEXT NOT NULL,
			ms_played INTEGER NOT NULL,
			ts TEXT NOT NULL,
			source TEXT NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
			UNIQUE(artist, album, track, ts)
		);

		CREATE INDEX IF NOT EXISTS idx_plays_artist ON plays(artist);
		CREATE INDEX IF NOT EXISTS idx_plays_ts ON plays(ts);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SavePlays inserts every play of the merged ledger in one transaction.
// Plays already present (same artist/album/track/timestamp) are skipped.
// Returns the number of rows actually inserted.
func (s *Store) SavePlays(ctx context.Context, ledger *stats.Ledger) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO plays (artist, album, track, ms_played, ts, source)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	source := ledger.Source.String()
	var inserted int64
	for _, key := range ledger.Keys() {
		entry := ledger.Get(key)
		for _, d := range entry.Timestamps {
			res, err := stmt.ExecContext(ctx,
				entry.Artist, entry.Album, entry.Track, d.MSPlayed, d.TS, source)
			if err != nil {
				return 0, fmt.Errorf("failed to insert play: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return 0, fmt.Errorf("failed to get rows affected: %w", err)
			}
			inserted += n
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}

// TopArtists returns artists ordered by total listening time descending
func (s *Store) TopArtists(ctx context.Context, limit int) ([]ArtistRow, error) {
	query := `
		SELECT artist, SUM(ms_played), COUNT(*)
		FROM plays
		GROUP BY artist
		ORDER BY SUM(ms_played) DESC, MIN(id) ASC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query top artists: %w", err)
	}
	defer rows.Close()

	var out []ArtistRow
	for rows.Next() {
		var r ArtistRow
		if err := rows.Scan(&r.Artist, &r.MSPlayed, &r.Plays); err != nil {
			return nil, fmt.Errorf("failed to scan artist row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artist rows: %w", err)
	}
	return out, nil
}

// TopTracks returns tracks ordered by total listening time descending
func (s *Store) TopTracks(ctx context.Context, limit int) ([]TrackRow, error) {
	query := `
		SELECT artist, album, track, SUM(ms_played), COUNT(*)
		FROM plays
		GROUP BY artist, album, track
		ORDER BY SUM(ms_played) DESC, MIN(id) ASC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query top tracks: %w", err)
	}
	defer rows.Close()

	var out []TrackRow
	for rows.Next() {
		var r TrackRow
		if err := rows.Scan(&r.Artist, &r.Album, &r.Track, &r.MSPlayed, &r.Plays); err != nil {
			return nil, fmt.Errorf("failed to scan track row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating track rows: %w", err)
	}
	return out, nil
}

// Count returns the number of stored plays
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM plays").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count plays: %w", err)
	}
	return count, nil
}

// Clear removes every stored play
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM plays")
	if err != nil {
		return 0, fmt.Errorf("failed to clear plays: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}
