package recommend

import (
	"github.com/llehouerou/songrec/internal/catalog"
)

// DiversityPolicy contributes extra artists to every candidate pool so a
// similarity group that yields few songs still has something to rank.
type DiversityPolicy interface {
	ExtraArtists() []string
}

// FixedArtist always adds the same artist's songs to the pool.
type FixedArtist struct {
	ArtistID string
}

// NewFixedArtist picks the artist of one uniformly chosen song.
func NewFixedArtist(c *catalog.Corpus, rng randSource) FixedArtist {
	return FixedArtist{ArtistID: c.SongAt(rng.IntN(c.Len())).ArtistID}
}

func (f FixedArtist) ExtraArtists() []string {
	if f.ArtistID == "" {
		return nil
	}
	return []string{f.ArtistID}
}

// NoDiversity adds nothing to the pool.
type NoDiversity struct{}

func (NoDiversity) ExtraArtists() []string { return nil }

// buildPool collects the songs of the given artists, skipping excluded songs
// and songs without feature data. Artists and songs are visited once.
func buildPool(c *catalog.Corpus, artists []string, exclude map[string]bool) []catalog.Song {
	var pool []catalog.Song
	seenArtists := make(map[string]bool, len(artists))

	for _, artist := range artists {
		if seenArtists[artist] {
			continue
		}
		seenArtists[artist] = true

		for _, s := range c.ArtistSongs(artist) {
			if exclude[s.ID] || !s.HasFeatures() {
				continue
			}
			pool = append(pool, s)
		}
	}

	return pool
}

// fullPool is the whole corpus minus excluded and incomplete songs.
func fullPool(c *catalog.Corpus, exclude map[string]bool) []catalog.Song {
	pool := make([]catalog.Song, 0, c.Len())
	for i := range c.Len() {
		s := c.SongAt(i)
		if exclude[s.ID] || !s.HasFeatures() {
			continue
		}
		pool = append(pool, s)
	}
	return pool
}
