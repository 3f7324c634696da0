package recommend

import (
	"cmp"
	"slices"

	"github.com/llehouerou/songrec/internal/catalog"
)

// ArtistGroup is a set of artists that share the same similarity frequency.
type ArtistGroup struct {
	Frequency int
	Artists   []string // sorted by id
}

// RankedPartition partitions candidate artists by how many input songs list
// them as similar. Groups are ordered by strictly decreasing frequency and
// every artist appears in exactly one group.
type RankedPartition []ArtistGroup

// Artists returns all artists across groups, most similar first.
func (p RankedPartition) Artists() []string {
	var out []string
	for _, g := range p {
		out = append(out, g.Artists...)
	}
	return out
}

// SimilarArtistsRanked expands a set of songs into the artists their
// performers are similar to. Songs or artists missing from the corpus are
// skipped. Duplicate song ids are counted once.
func SimilarArtistsRanked(c *catalog.Corpus, songIDs []string) RankedPartition {
	freq := make(map[string]int)
	seen := make(map[string]bool, len(songIDs))

	for _, id := range songIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		s, ok := c.Song(id)
		if !ok {
			continue
		}
		for _, similar := range c.SimilarArtists(s.ArtistID) {
			freq[similar]++
		}
	}

	if len(freq) == 0 {
		return nil
	}

	byFreq := make(map[int][]string)
	for artist, n := range freq {
		byFreq[n] = append(byFreq[n], artist)
	}

	partition := make(RankedPartition, 0, len(byFreq))
	for n, artists := range byFreq {
		slices.Sort(artists)
		partition = append(partition, ArtistGroup{Frequency: n, Artists: artists})
	}

	slices.SortFunc(partition, func(a, b ArtistGroup) int {
		return cmp.Compare(b.Frequency, a.Frequency)
	})

	return partition
}
