// Package lastfm fetches artist similarity from the Last.fm API.
package lastfm

import (
	"errors"
	"fmt"

	"github.com/shkh/lastfm-go/lastfm"
)

// ErrNoCredentials is returned when the client is built without an API key.
var ErrNoCredentials = errors.New("lastfm: api key and secret are required")

// Client wraps the Last.fm API for similarity lookups.
type Client struct {
	api *lastfm.Api
}

// New creates a new Last.fm client with the given API credentials.
func New(apiKey, apiSecret string) (*Client, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, ErrNoCredentials
	}
	return &Client{api: lastfm.New(apiKey, apiSecret)}, nil
}

// GetSimilarArtists fetches similar artists from Last.fm.
func (c *Client) GetSimilarArtists(artist string, limit int) ([]SimilarArtist, error) {
	params := lastfm.P{
		"artist": artist,
		"limit":  limit,
	}

	result, err := c.api.Artist.GetSimilar(params)
	if err != nil {
		return nil, fmt.Errorf("get similar artists: %w", err)
	}

	artists := make([]SimilarArtist, 0, len(result.Similars))
	for _, a := range result.Similars {
		artists = append(artists, SimilarArtist{
			Name:       a.Name,
			MatchScore: parseMatch(a.Match),
		})
	}

	return artists, nil
}

// parseMatch reads Last.fm's textual match score; unparsable values are 0.
func parseMatch(s string) float64 {
	score := 0.0
	if s != "" {
		_, _ = fmt.Sscanf(s, "%f", &score) //nolint:errcheck // parse failure means score stays 0
	}
	return score
}
