package snapshot

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/songrec/internal/catalog"
)

// setupTestStore creates a store over an in-memory SQLite database.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// :memory: databases are per connection.
	conn.SetMaxOpenConns(1)

	s, err := New(context.Background(), conn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTables() ([]catalog.Song, []catalog.Artist) {
	songs := []catalog.Song{
		{
			ID: "SOB", ArtistID: "AR1", Title: "Second",
			Duration: 180.5, Loudness: -7.25, Tempo: 128,
			Key: 4, KeyConfidence: 0.6, Mode: 0, ModeConfidence: 0.4,
		},
		{
			ID: "SOA", ArtistID: "AR2", Title: "First",
			Duration: 240, Loudness: -3, Tempo: 90,
			Key: 11, KeyConfidence: 1, Mode: 1, ModeConfidence: 0.9,
		},
		{
			ID: "SOC", ArtistID: "AR1", Title: "Partial",
			Duration: math.NaN(), Loudness: -9, Tempo: math.NaN(),
			Key: catalog.MissingKey, KeyConfidence: math.NaN(),
			Mode: catalog.MissingMode, ModeConfidence: math.NaN(),
		},
	}
	artists := []catalog.Artist{
		{ID: "AR2", Name: "Two", SimilarArtists: []string{"AR9", "AR1", "AR5"}},
		{ID: "AR1", Name: "One"},
	}
	return songs, artists
}

func TestStore_LoadEmpty(t *testing.T) {
	s := setupTestStore(t)

	c, err := s.Load(context.Background())

	require.ErrorIs(t, err, ErrNoSnapshot)
	require.ErrorIs(t, err, catalog.ErrEmptyCorpus)
	assert.Nil(t, c)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	songs, artists := sampleTables()

	require.NoError(t, s.Save(ctx, songs, artists))

	c, err := s.Load(ctx)
	require.NoError(t, err)

	// Insertion order survives.
	require.Equal(t, 3, c.Len())
	assert.Equal(t, "SOB", c.SongAt(0).ID)
	assert.Equal(t, "SOA", c.SongAt(1).ID)
	assert.Equal(t, "SOC", c.SongAt(2).ID)

	assert.Equal(t, songs[0], c.SongAt(0))
	assert.Equal(t, songs[1], c.SongAt(1))

	partial := c.SongAt(2)
	assert.False(t, partial.HasFeatures())
	assert.True(t, math.IsNaN(partial.Duration))
	assert.InDelta(t, -9.0, partial.Loudness, 1e-12)
	assert.Equal(t, catalog.MissingKey, partial.Key)
	assert.Equal(t, catalog.MissingMode, partial.Mode)

	loaded := c.Artists()
	require.Len(t, loaded, 2)
	assert.Equal(t, "AR2", loaded[0].ID)
	assert.Equal(t, []string{"AR9", "AR1", "AR5"}, loaded[0].SimilarArtists)
	assert.Equal(t, "One", loaded[1].Name)
	assert.Empty(t, loaded[1].SimilarArtists)
}

func TestStore_SaveReplaces(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	songs, artists := sampleTables()

	require.NoError(t, s.Save(ctx, songs, artists))
	require.NoError(t, s.Save(ctx, songs[:1], artists[1:]))

	c, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.ArtistCount())
	assert.Empty(t, c.SimilarArtists("AR2"))
}

func TestStore_SaveDuplicatesFirstWins(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	songs := []catalog.Song{
		{ID: "S1", ArtistID: "A", Title: "kept", Key: 1, Mode: 1},
		{ID: "S1", ArtistID: "B", Title: "dropped", Key: 2, Mode: 0},
	}
	artists := []catalog.Artist{
		{ID: "A", Name: "kept", SimilarArtists: []string{"X"}},
		{ID: "A", Name: "dropped", SimilarArtists: []string{"Y", "Z"}},
	}

	require.NoError(t, s.Save(ctx, songs, artists))

	c, err := s.Load(ctx)
	require.NoError(t, err)
	got, _ := c.Song("S1")
	assert.Equal(t, "kept", got.Title)
	a, _ := c.Artist("A")
	assert.Equal(t, "kept", a.Name)
	assert.Equal(t, []string{"X"}, a.SimilarArtists)
}

func TestStore_Stats(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Songs)
	assert.True(t, st.SavedAt.IsZero())

	songs, artists := sampleTables()
	require.NoError(t, s.Save(ctx, songs, artists))

	st, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Songs)
	assert.Equal(t, 2, st.Artists)
	assert.Equal(t, 2, st.SongArtists)
	assert.Equal(t, 3, st.SimilarLinks)
	assert.False(t, st.SavedAt.IsZero())
}

func TestOpen_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "corpus.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)

	songs, artists := sampleTables()
	require.NoError(t, s.Save(ctx, songs, artists))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	c, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
}

func TestOpen_ForeignKeysOnEveryConnection(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "corpus.db"))
	require.NoError(t, err)
	defer s.Close()

	// Hold two connections at once so the pool has to open a second one.
	first, err := s.DB().Conn(ctx)
	require.NoError(t, err)
	defer first.Close()
	second, err := s.DB().Conn(ctx)
	require.NoError(t, err)
	defer second.Close()

	for _, conn := range []*sql.Conn{first, second} {
		var enabled int
		require.NoError(t, conn.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&enabled))
		assert.Equal(t, 1, enabled)
	}

	songs, artists := sampleTables()
	require.NoError(t, s.Save(ctx, songs, artists))

	_, err = second.ExecContext(ctx, `DELETE FROM artists WHERE artist_id = 'AR2'`)
	require.NoError(t, err)

	var links int
	require.NoError(t, second.QueryRowContext(ctx, `SELECT COUNT(*) FROM similar_artists`).Scan(&links))
	assert.Zero(t, links)
}
