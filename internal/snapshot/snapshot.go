// Package snapshot persists the song and artist tables in a SQLite file that
// the recommender loads once at startup.
package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/llehouerou/songrec/internal/catalog"
	"github.com/llehouerou/songrec/internal/db"
)

const (
	appName    = "songrec"
	dbFileName = "corpus.db"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("snapshot: no songs saved")

// Store is a corpus snapshot backed by SQLite.
type Store struct {
	db *sql.DB
}

// Stats summarizes a saved snapshot.
type Stats struct {
	Songs        int
	Artists      int
	SongArtists  int // distinct artist ids referenced by songs
	SimilarLinks int
	SavedAt      time.Time // zero if never saved
}

// DefaultPath returns the snapshot location under the XDG data directory.
func DefaultPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}

// Open opens or creates the snapshot at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	// The pragma in the DSN applies to every pooled connection.
	conn, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}

	s, err := New(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already opened database, creating the schema if needed.
// Foreign keys are enabled on one connection only; callers with a pool should
// enable them in the DSN as Open does.
func New(ctx context.Context, conn *sql.DB) (*Store, error) {
	if _, err := conn.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := initSchema(ctx, conn); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: conn}, nil
}

// DB exposes the underlying connection for caches sharing the file.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the whole snapshot with the given tables in one transaction.
func (s *Store) Save(ctx context.Context, songs []catalog.Song, artists []catalog.Artist) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, table := range []string{"similar_artists", "artists", "songs"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil { //nolint:gosec // fixed table names
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}

		if err := insertSongs(ctx, tx, songs); err != nil {
			return err
		}
		if err := insertArtists(ctx, tx, artists); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshot_meta (id, saved_at) VALUES (1, ?)
			ON CONFLICT(id) DO UPDATE SET saved_at = excluded.saved_at
		`, time.Now().Unix())
		return err
	})
}

func insertSongs(ctx context.Context, tx *sql.Tx, songs []catalog.Song) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO songs (
			song_id, position, artist_id, title, duration, loudness, tempo,
			key, key_confidence, mode, mode_confidence
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare song insert: %w", err)
	}
	defer stmt.Close()

	for i := range songs {
		so := &songs[i]
		_, err := stmt.ExecContext(ctx,
			so.ID, i, so.ArtistID, so.Title,
			db.FloatOrNull(so.Duration),
			db.FloatOrNull(so.Loudness),
			db.FloatOrNull(so.Tempo),
			db.IntOrNull(so.Key, catalog.MissingKey),
			db.FloatOrNull(so.KeyConfidence),
			db.IntOrNull(so.Mode, catalog.MissingMode),
			db.FloatOrNull(so.ModeConfidence),
		)
		if err != nil {
			return fmt.Errorf("insert song %s: %w", so.ID, err)
		}
	}
	return nil
}

func insertArtists(ctx context.Context, tx *sql.Tx, artists []catalog.Artist) error {
	artistStmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO artists (artist_id, position, name) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare artist insert: %w", err)
	}
	defer artistStmt.Close()

	similarStmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO similar_artists (artist_id, position, similar_id) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare similar artist insert: %w", err)
	}
	defer similarStmt.Close()

	for i := range artists {
		a := &artists[i]
		res, err := artistStmt.ExecContext(ctx, a.ID, i, a.Name)
		if err != nil {
			return fmt.Errorf("insert artist %s: %w", a.ID, err)
		}
		// Duplicated artist: the first entry keeps its similar list.
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		for pos, similar := range a.SimilarArtists {
			if _, err := similarStmt.ExecContext(ctx, a.ID, pos, similar); err != nil {
				return fmt.Errorf("insert similar artist %s -> %s: %w", a.ID, similar, err)
			}
		}
	}
	return nil
}

// Load reads the snapshot into an immutable corpus.
func (s *Store) Load(ctx context.Context) (*catalog.Corpus, error) {
	songs, err := s.loadSongs(ctx)
	if err != nil {
		return nil, err
	}
	if len(songs) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoSnapshot, catalog.ErrEmptyCorpus)
	}

	artists, err := s.loadArtists(ctx)
	if err != nil {
		return nil, err
	}

	return catalog.NewCorpus(songs, artists)
}

func (s *Store) loadSongs(ctx context.Context) ([]catalog.Song, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT song_id, artist_id, title, duration, loudness, tempo,
		       key, key_confidence, mode, mode_confidence
		FROM songs
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("query songs: %w", err)
	}
	defer rows.Close()

	var songs []catalog.Song
	for rows.Next() {
		var (
			so                            catalog.Song
			duration, loudness, tempo     sql.NullFloat64
			keyConfidence, modeConfidence sql.NullFloat64
			key, mode                     sql.NullInt64
		)
		if err := rows.Scan(&so.ID, &so.ArtistID, &so.Title, &duration, &loudness, &tempo,
			&key, &keyConfidence, &mode, &modeConfidence); err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		so.Duration = db.NullFloat64Value(duration)
		so.Loudness = db.NullFloat64Value(loudness)
		so.Tempo = db.NullFloat64Value(tempo)
		so.Key = db.NullInt64Or(key, catalog.MissingKey)
		so.KeyConfidence = db.NullFloat64Value(keyConfidence)
		so.Mode = db.NullInt64Or(mode, catalog.MissingMode)
		so.ModeConfidence = db.NullFloat64Value(modeConfidence)
		songs = append(songs, so)
	}
	return songs, rows.Err()
}

func (s *Store) loadArtists(ctx context.Context) ([]catalog.Artist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.artist_id, a.name, sa.similar_id
		FROM artists a
		LEFT JOIN similar_artists sa ON sa.artist_id = a.artist_id
		ORDER BY a.position, sa.position
	`)
	if err != nil {
		return nil, fmt.Errorf("query artists: %w", err)
	}
	defer rows.Close()

	var artists []catalog.Artist
	for rows.Next() {
		var (
			id, name string
			similar  sql.NullString
		)
		if err := rows.Scan(&id, &name, &similar); err != nil {
			return nil, fmt.Errorf("scan artist: %w", err)
		}
		if len(artists) == 0 || artists[len(artists)-1].ID != id {
			artists = append(artists, catalog.Artist{ID: id, Name: name})
		}
		if similar.Valid {
			last := &artists[len(artists)-1]
			last.SimilarArtists = append(last.SimilarArtists, similar.String)
		}
	}
	return artists, rows.Err()
}

// Stats counts what the snapshot holds.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var savedAt sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM songs),
			(SELECT COUNT(*) FROM artists),
			(SELECT COUNT(DISTINCT artist_id) FROM songs),
			(SELECT COUNT(*) FROM similar_artists),
			(SELECT saved_at FROM snapshot_meta WHERE id = 1)
	`).Scan(&st.Songs, &st.Artists, &st.SongArtists, &st.SimilarLinks, &savedAt)
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	if savedAt.Valid {
		st.SavedAt = time.Unix(savedAt.Int64, 0)
	}
	return st, nil
}
