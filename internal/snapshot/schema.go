package snapshot

import (
	"context"
	"database/sql"
)

const currentSchemaVersion = 1

func initSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS snapshot_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			saved_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS songs (
			song_id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			artist_id TEXT NOT NULL,
			title TEXT NOT NULL,
			duration REAL,
			loudness REAL,
			tempo REAL,
			key INTEGER,
			key_confidence REAL,
			mode INTEGER,
			mode_confidence REAL
		);

		CREATE INDEX IF NOT EXISTS idx_songs_position ON songs(position);
		CREATE INDEX IF NOT EXISTS idx_songs_artist ON songs(artist_id);

		CREATE TABLE IF NOT EXISTS artists (
			artist_id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			name TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS similar_artists (
			artist_id TEXT NOT NULL REFERENCES artists(artist_id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			similar_id TEXT NOT NULL,
			PRIMARY KEY (artist_id, position)
		);

		-- Last.fm similarity cache used when enriching artists
		CREATE TABLE IF NOT EXISTS lastfm_similar_artists (
			artist TEXT NOT NULL,
			similar_artist TEXT NOT NULL,
			match_score REAL NOT NULL,
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (artist, similar_artist)
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	return err
}
