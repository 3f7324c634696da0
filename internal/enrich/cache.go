package enrich

import (
	"context"
	"database/sql"
	"time"

	"github.com/llehouerou/songrec/internal/db"
	"github.com/llehouerou/songrec/internal/lastfm"
)

// Cache keeps Last.fm similarity answers in the snapshot database.
type Cache struct {
	db      *sql.DB
	ttlDays int
	now     func() time.Time
}

// NewCache creates a new Cache instance.
func NewCache(conn *sql.DB, ttlDays int) *Cache {
	return &Cache{
		db:      conn,
		ttlDays: ttlDays,
		now:     time.Now,
	}
}

func (c *Cache) expiry() int64 {
	return c.now().AddDate(0, 0, -c.ttlDays).Unix()
}

// noSimilar marks an artist Last.fm knows no similar artists for. Last.fm
// never returns an empty artist name.
const noSimilar = ""

// GetSimilarArtists returns cached similar artists, or nil when absent or expired.
func (c *Cache) GetSimilarArtists(ctx context.Context, artist string) ([]lastfm.SimilarArtist, error) {
	similar, _, err := c.Lookup(ctx, artist)
	return similar, err
}

// Lookup is GetSimilarArtists that also reports whether a fresh entry exists,
// so a cached empty answer can be told apart from a miss.
func (c *Cache) Lookup(ctx context.Context, artist string) ([]lastfm.SimilarArtist, bool, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT similar_artist, match_score, fetched_at
		FROM lastfm_similar_artists
		WHERE artist = ?
		ORDER BY match_score DESC, similar_artist
	`, artist)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var result []lastfm.SimilarArtist
	found := false
	expiry := c.expiry()

	for rows.Next() {
		var similar lastfm.SimilarArtist
		var fetchedAt int64
		if err := rows.Scan(&similar.Name, &similar.MatchScore, &fetchedAt); err != nil {
			return nil, false, err
		}
		// Entries of one artist share a timestamp.
		if fetchedAt < expiry {
			return nil, false, nil
		}
		found = true
		if similar.Name != noSimilar {
			result = append(result, similar)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	return result, found, nil
}

// SetSimilarArtists replaces the cached similar artists of an artist. An empty
// list is cached too.
func (c *Cache) SetSimilarArtists(ctx context.Context, artist string, similar []lastfm.SimilarArtist) error {
	return db.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM lastfm_similar_artists WHERE artist = ?`, artist); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO lastfm_similar_artists (artist, similar_artist, match_score, fetched_at)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := c.now().Unix()
		if len(similar) == 0 {
			_, err := stmt.ExecContext(ctx, artist, noSimilar, 0, now)
			return err
		}
		for _, s := range similar {
			if _, err := stmt.ExecContext(ctx, artist, s.Name, s.MatchScore, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// CleanExpired removes all expired cache entries.
func (c *Cache) CleanExpired(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM lastfm_similar_artists WHERE fetched_at < ?`, c.expiry())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
