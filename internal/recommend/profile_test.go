package recommend

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/songrec/internal/catalog"
)

// testSong returns a complete song with neutral features.
func testSong(id, artist string) catalog.Song {
	return catalog.Song{
		ID:             id,
		ArtistID:       artist,
		Title:          "Song " + id,
		Duration:       200,
		Loudness:       -5,
		Tempo:          120,
		Key:            0,
		KeyConfidence:  0.5,
		Mode:           1,
		ModeConfidence: 0.5,
	}
}

func withKey(s catalog.Song, key int, confidence float64) catalog.Song {
	s.Key = key
	s.KeyConfidence = confidence
	return s
}

func mustCorpus(t *testing.T, songs []catalog.Song, artists []catalog.Artist) *catalog.Corpus {
	t.Helper()
	c, err := catalog.NewCorpus(songs, artists)
	require.NoError(t, err)
	return c
}

func TestBuildCategoricalProfile_ConfidenceWeighted(t *testing.T) {
	c := mustCorpus(t, []catalog.Song{
		withKey(testSong("s1", "A"), 5, 0.9),
		withKey(testSong("s2", "A"), 5, 0.3),
		withKey(testSong("s3", "A"), 7, 0.4),
	}, nil)

	p := BuildCategoricalProfile(c, FeatureKey, []string{"s1", "s2", "s3"})

	assert.Equal(t, FeatureKey, p.Feature)
	assert.InDelta(t, 3.0, p.N, 1e-12)
	assert.InDelta(t, 1.2, p.Weight(5), 1e-12)
	assert.InDelta(t, 0.4, p.Weight(7), 1e-12)
	assert.Zero(t, p.Weight(2))

	assert.InDelta(t, 0.4, p.Match(5), 1e-12)
	assert.Zero(t, p.Match(2))
}

func TestBuildCategoricalProfile_Mode(t *testing.T) {
	minor := testSong("s2", "A")
	minor.Mode = 0
	minor.ModeConfidence = 0.8

	c := mustCorpus(t, []catalog.Song{testSong("s1", "A"), minor}, nil)

	p := BuildCategoricalProfile(c, FeatureMode, []string{"s1", "s2"})

	assert.InDelta(t, 0.5, p.Weight(1), 1e-12)
	assert.InDelta(t, 0.8, p.Weight(0), 1e-12)
	assert.InDelta(t, 0.4, p.Match(0), 1e-12)
}

func TestBuildCategoricalProfile_MissingReferences(t *testing.T) {
	missingKey := testSong("s2", "A")
	missingKey.Key = catalog.MissingKey
	nanConfidence := withKey(testSong("s3", "A"), 0, math.NaN())

	c := mustCorpus(t, []catalog.Song{testSong("s1", "A"), missingKey, nanConfidence}, nil)

	p := BuildCategoricalProfile(c, FeatureKey, []string{"s1", "s2", "s3", "unknown", "s1"})

	// Distinct ids, unknown included.
	assert.InDelta(t, 4.0, p.N, 1e-12)
	assert.InDelta(t, 0.5, p.Weight(0), 1e-12)
	assert.Len(t, p.Weights, 1)
}

func TestCategoricalProfile_EmptyMatchesZero(t *testing.T) {
	var p CategoricalProfile
	assert.Zero(t, p.Match(0))
}

func TestBuildCategoricalProfile_ConfidenceMonotonic(t *testing.T) {
	base := []catalog.Song{
		withKey(testSong("s1", "A"), 3, 0.2),
		withKey(testSong("s2", "A"), 3, 0.6),
		withKey(testSong("s3", "A"), 9, 0.7),
	}
	history := []string{"s1", "s2", "s3"}

	prev := -1.0
	for _, confidence := range []float64{0, 0.1, 0.25, 0.5, 0.75, 1} {
		songs := append([]catalog.Song(nil), base...)
		songs[0] = withKey(songs[0], 3, confidence)
		c := mustCorpus(t, songs, nil)

		w := BuildCategoricalProfile(c, FeatureKey, history).Weight(3)
		assert.GreaterOrEqual(t, w, prev, "confidence %v", confidence)
		prev = w
	}
}

func TestNewPoolStats(t *testing.T) {
	s1 := testSong("s1", "A")
	s1.Loudness, s1.Duration, s1.Tempo = -10, 100, 100
	s2 := testSong("s2", "A")
	s2.Loudness, s2.Duration, s2.Tempo = -6, 300, 140

	st := NewPoolStats([]catalog.Song{s1, s2})

	assert.InDelta(t, -8.0, st.Loudness.Mean, 1e-12)
	assert.InDelta(t, 2.0, st.Loudness.Std, 1e-12) // population std
	assert.InDelta(t, 200.0, st.Duration.Mean, 1e-12)
	assert.InDelta(t, 100.0, st.Duration.Std, 1e-12)
	assert.InDelta(t, 120.0, st.Tempo.Mean, 1e-12)
	assert.InDelta(t, 20.0, st.Tempo.Std, 1e-12)
}

func TestNewPoolStats_EmptyAndSingle(t *testing.T) {
	assert.Equal(t, PoolStats{}, NewPoolStats(nil))

	st := NewPoolStats([]catalog.Song{testSong("s1", "A")})
	assert.InDelta(t, 120.0, st.Tempo.Mean, 1e-12)
	assert.Zero(t, st.Tempo.Std)
}
