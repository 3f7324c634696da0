package ingest

import (
	"bytes"
	"errors"
	"math"

	"github.com/goccy/go-json"

	"github.com/llehouerou/songrec/internal/catalog"
)

// ErrEmptyDocument is returned for metadata files with no content.
var ErrEmptyDocument = errors.New("ingest: empty document")

// document is one song record as found in a metadata file. Pointer fields
// distinguish absent or null values from zero.
type document struct {
	SongID         string   `json:"song_id"`
	ArtistID       string   `json:"artist_id"`
	Title          string   `json:"title"`
	Duration       *float64 `json:"duration"`
	Loudness       *float64 `json:"loudness"`
	Tempo          *float64 `json:"tempo"`
	Key            *int     `json:"key"`
	KeyConfidence  *float64 `json:"key_confidence"`
	Mode           *int     `json:"mode"`
	ModeConfidence *float64 `json:"mode_confidence"`

	ArtistName     string   `json:"artist_name"`
	SimilarArtists []string `json:"similar_artists"`
}

// decodeDocuments reads either a single object or an array of objects.
func decodeDocuments(data []byte) ([]document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyDocument
	}

	if trimmed[0] == '[' {
		var docs []document
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	}

	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}
	return []document{doc}, nil
}

func (d document) valid() bool {
	return d.SongID != "" && d.ArtistID != ""
}

func (d document) song() catalog.Song {
	return catalog.Song{
		ID:             d.SongID,
		ArtistID:       d.ArtistID,
		Title:          d.Title,
		Duration:       floatOrNaN(d.Duration),
		Loudness:       floatOrNaN(d.Loudness),
		Tempo:          floatOrNaN(d.Tempo),
		Key:            intInRange(d.Key, 0, 11, catalog.MissingKey),
		KeyConfidence:  floatOrNaN(d.KeyConfidence),
		Mode:           intInRange(d.Mode, 0, 1, catalog.MissingMode),
		ModeConfidence: floatOrNaN(d.ModeConfidence),
	}
}

func (d document) artist() catalog.Artist {
	var similar []string
	if len(d.SimilarArtists) > 0 {
		similar = make([]string, 0, len(d.SimilarArtists))
		for _, id := range d.SimilarArtists {
			if id != "" {
				similar = append(similar, id)
			}
		}
	}
	return catalog.Artist{
		ID:             d.ArtistID,
		Name:           d.ArtistName,
		SimilarArtists: similar,
	}
}

func floatOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func intInRange(v *int, lo, hi, missing int) int {
	if v == nil || *v < lo || *v > hi {
		return missing
	}
	return *v
}
