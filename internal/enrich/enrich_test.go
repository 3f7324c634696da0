package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/songrec/internal/catalog"
	"github.com/llehouerou/songrec/internal/lastfm"
)

type fakeSource struct {
	answers map[string][]lastfm.SimilarArtist
	errs    map[string]error
	calls   []string
}

func (f *fakeSource) GetSimilarArtists(artist string, _ int) ([]lastfm.SimilarArtist, error) {
	f.calls = append(f.calls, artist)
	if err := f.errs[artist]; err != nil {
		return nil, err
	}
	return f.answers[artist], nil
}

func testArtists() []catalog.Artist {
	return []catalog.Artist{
		{ID: "AR1", Name: "Radiohead"},
		{ID: "AR2", Name: "Muse", SimilarArtists: []string{"AR1"}},
		{ID: "AR3", Name: "Portishead"},
		{ID: "AR4", Name: "Unknown Band"},
		{ID: "AR5"}, // no name, nothing to look up
	}
}

func TestEnrich_FillsEmptyLists(t *testing.T) {
	source := &fakeSource{answers: map[string][]lastfm.SimilarArtist{
		"Radiohead":    {{Name: "Muse", MatchScore: 1}, {Name: "Portishead", MatchScore: 0.5}},
		"Portishead":   {{Name: "Massive Attack", MatchScore: 1}, {Name: "Radiohead", MatchScore: 0.4}},
		"Unknown Band": {{Name: "Nobody", MatchScore: 1}},
	}}
	e := New(source, nil, Config{}, zerolog.Nop())

	in := testArtists()
	out, res, err := e.Enrich(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, []string{"AR2", "AR3"}, out[0].SimilarArtists)
	assert.Equal(t, []string{"AR1"}, out[1].SimilarArtists, "existing lists are kept")
	assert.Equal(t, []string{"AR1"}, out[2].SimilarArtists)
	assert.Empty(t, out[3].SimilarArtists)
	assert.Empty(t, out[4].SimilarArtists)

	assert.Equal(t, Result{Enriched: 2, Unmatched: 1}, res)
	assert.Equal(t, []string{"Radiohead", "Portishead", "Unknown Band"}, source.calls)

	assert.Empty(t, in[0].SimilarArtists, "input must not be modified")
}

func TestEnrich_FailuresAreSkipped(t *testing.T) {
	source := &fakeSource{
		answers: map[string][]lastfm.SimilarArtist{"Portishead": {{Name: "Radiohead"}}},
		errs:    map[string]error{"Radiohead": errors.New("rate limited")},
	}
	e := New(source, nil, Config{}, zerolog.Nop())

	out, res, err := e.Enrich(context.Background(), testArtists())
	require.NoError(t, err)

	assert.Empty(t, out[0].SimilarArtists)
	assert.Equal(t, []string{"AR1"}, out[2].SimilarArtists)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Enriched)
}

func TestEnrich_UsesCache(t *testing.T) {
	cache := NewCache(setupTestDB(t), 7)
	ctx := context.Background()
	require.NoError(t, cache.SetSimilarArtists(ctx, "Radiohead", []lastfm.SimilarArtist{{Name: "Muse", MatchScore: 1}}))

	source := &fakeSource{answers: map[string][]lastfm.SimilarArtist{
		"Portishead": {{Name: "Radiohead", MatchScore: 1}},
	}}
	e := New(source, cache, Config{}, zerolog.Nop())

	out, res, err := e.Enrich(ctx, testArtists())
	require.NoError(t, err)

	assert.Equal(t, []string{"AR2"}, out[0].SimilarArtists)
	assert.Equal(t, 1, res.Cached)
	assert.NotContains(t, source.calls, "Radiohead")

	// Fetched answers are cached for next time.
	cached, err := cache.GetSimilarArtists(ctx, "Portishead")
	require.NoError(t, err)
	assert.Len(t, cached, 1)
}

func TestEnrich_CachesEmptyAnswers(t *testing.T) {
	cache := NewCache(setupTestDB(t), 7)
	ctx := context.Background()

	source := &fakeSource{answers: map[string][]lastfm.SimilarArtist{
		"Radiohead": {{Name: "Muse", MatchScore: 1}},
	}}
	e := New(source, cache, Config{}, zerolog.Nop())

	_, first, err := e.Enrich(ctx, testArtists())
	require.NoError(t, err)
	assert.Equal(t, Result{Enriched: 1, Unmatched: 2}, first)
	assert.Equal(t, []string{"Radiohead", "Portishead", "Unknown Band"}, source.calls)

	source.calls = nil
	_, second, err := e.Enrich(ctx, testArtists())
	require.NoError(t, err)
	assert.Empty(t, source.calls, "empty answers are served from the cache")
	assert.Equal(t, Result{Enriched: 1, Unmatched: 2, Cached: 3}, second)
}

func TestEnrich_CanceledContext(t *testing.T) {
	e := New(&fakeSource{}, nil, Config{}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := e.Enrich(ctx, testArtists())
	require.ErrorIs(t, err, context.Canceled)
}

func TestNew_AppliesDefaults(t *testing.T) {
	e := New(&fakeSource{}, nil, Config{MatchThreshold: 3}, zerolog.Nop())
	assert.Equal(t, 50, e.cfg.Limit)
	assert.InDelta(t, 0.8, e.cfg.MatchThreshold, 1e-12)
}
