// Package catalog holds the read-only song and artist tables the recommender works on.
package catalog

import (
	"errors"
	"math"
)

// ErrEmptyCorpus is returned when a corpus is built without any song.
var ErrEmptyCorpus = errors.New("catalog: corpus has no songs")

// Missing categorical values.
const (
	MissingKey  = -1
	MissingMode = -1
)

// Song is one row of the song table.
type Song struct {
	ID             string
	ArtistID       string
	Title          string
	Duration       float64 // seconds
	Loudness       float64 // dB, usually negative
	Tempo          float64 // BPM
	Key            int     // pitch class 0-11
	KeyConfidence  float64 // 0-1
	Mode           int     // 1 major, 0 minor
	ModeConfidence float64 // 0-1
}

// HasFeatures reports whether every feature used for scoring is present.
func (s Song) HasFeatures() bool {
	if s.Key == MissingKey || s.Mode == MissingMode {
		return false
	}
	for _, v := range []float64{s.Duration, s.Loudness, s.Tempo, s.KeyConfidence, s.ModeConfidence} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Artist is one entry of the artist table.
type Artist struct {
	ID             string
	Name           string
	SimilarArtists []string // artist ids, in the order the similarity source reported them
}

// Corpus is the immutable pair of song and artist tables.
// It is safe for concurrent readers; nothing mutates it after NewCorpus.
type Corpus struct {
	songs          []Song
	songIndex      map[string]int
	artistSongs    map[string][]int
	artists        map[string]Artist
	artistsInOrder []string
}

// NewCorpus indexes the given tables. The first occurrence of a duplicated
// song id wins. Returns ErrEmptyCorpus when songs is empty.
func NewCorpus(songs []Song, artists []Artist) (*Corpus, error) {
	if len(songs) == 0 {
		return nil, ErrEmptyCorpus
	}

	c := &Corpus{
		songs:       make([]Song, 0, len(songs)),
		songIndex:   make(map[string]int, len(songs)),
		artistSongs: make(map[string][]int),
		artists:     make(map[string]Artist, len(artists)),
	}

	for _, s := range songs {
		if _, dup := c.songIndex[s.ID]; dup {
			continue
		}
		idx := len(c.songs)
		c.songs = append(c.songs, s)
		c.songIndex[s.ID] = idx
		c.artistSongs[s.ArtistID] = append(c.artistSongs[s.ArtistID], idx)
	}

	for _, a := range artists {
		if _, dup := c.artists[a.ID]; dup {
			continue
		}
		// Copy so callers can't mutate the similar list after construction.
		a.SimilarArtists = append([]string(nil), a.SimilarArtists...)
		c.artists[a.ID] = a
		c.artistsInOrder = append(c.artistsInOrder, a.ID)
	}

	return c, nil
}

// Len returns the number of songs.
func (c *Corpus) Len() int {
	return len(c.songs)
}

// SongAt returns the i-th song in insertion order.
func (c *Corpus) SongAt(i int) Song {
	return c.songs[i]
}

// Song looks up a song by id.
func (c *Corpus) Song(id string) (Song, bool) {
	idx, ok := c.songIndex[id]
	if !ok {
		return Song{}, false
	}
	return c.songs[idx], true
}

// Artist looks up an artist by id.
func (c *Corpus) Artist(id string) (Artist, bool) {
	a, ok := c.artists[id]
	return a, ok
}

// ArtistName returns the display name of an artist, or "" when unknown.
func (c *Corpus) ArtistName(id string) string {
	return c.artists[id].Name
}

// SimilarArtists returns the similar-artist ids of the artist, or nil.
// The returned slice must not be modified.
func (c *Corpus) SimilarArtists(artistID string) []string {
	return c.artists[artistID].SimilarArtists
}

// ArtistSongs returns the songs of an artist in insertion order.
func (c *Corpus) ArtistSongs(artistID string) []Song {
	idxs := c.artistSongs[artistID]
	if len(idxs) == 0 {
		return nil
	}
	out := make([]Song, len(idxs))
	for i, idx := range idxs {
		out[i] = c.songs[idx]
	}
	return out
}

// Songs returns a copy of the song table in insertion order.
func (c *Corpus) Songs() []Song {
	out := make([]Song, len(c.songs))
	copy(out, c.songs)
	return out
}

// Artists returns a copy of the artist table in insertion order.
func (c *Corpus) Artists() []Artist {
	out := make([]Artist, 0, len(c.artistsInOrder))
	for _, id := range c.artistsInOrder {
		out = append(out, c.artists[id])
	}
	return out
}

// ArtistCount returns the number of entries in the artist table.
func (c *Corpus) ArtistCount() int {
	return len(c.artists)
}

// SongArtistCount returns the number of distinct artists referenced by songs.
func (c *Corpus) SongArtistCount() int {
	return len(c.artistSongs)
}
