// Package enrich fills missing similar-artist lists from Last.fm.
//
// Last.fm answers with artist names; those are resolved to catalog artist
// ids by exact then fuzzy name matching. Answers are cached in the snapshot
// database so repeated ingests don't hit the API again.
package enrich

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/llehouerou/songrec/internal/catalog"
	"github.com/llehouerou/songrec/internal/lastfm"
)

// SimilarSource returns artists similar to the named one.
type SimilarSource interface {
	GetSimilarArtists(artist string, limit int) ([]lastfm.SimilarArtist, error)
}

// Config tunes enrichment.
type Config struct {
	Limit          int     // similar artists requested per artist
	MatchThreshold float64 // fuzzy name match threshold, 0-1
}

// Result counts what an enrichment run did.
type Result struct {
	Enriched  int // artists that received a non-empty list
	Unmatched int // answers with no artist in the catalog
	Failed    int // lookups that errored
	Cached    int // answers served from the cache
}

// Enricher fills empty similar-artist lists.
type Enricher struct {
	source SimilarSource
	cache  *Cache
	cfg    Config
	log    zerolog.Logger
}

// New creates an Enricher. cache may be nil.
func New(source SimilarSource, cache *Cache, cfg Config, log zerolog.Logger) *Enricher {
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}
	if cfg.MatchThreshold <= 0 || cfg.MatchThreshold > 1 {
		cfg.MatchThreshold = 0.8
	}
	return &Enricher{source: source, cache: cache, cfg: cfg, log: log}
}

// Enrich returns a copy of artists where every artist with a name and no
// similar list got one. Lookup failures are logged and skipped; only context
// cancellation aborts the run.
func (e *Enricher) Enrich(ctx context.Context, artists []catalog.Artist) ([]catalog.Artist, Result, error) {
	var res Result

	names := make(map[string]string, len(artists))
	for _, a := range artists {
		if a.Name != "" {
			names[a.ID] = a.Name
		}
	}
	idx := newArtistIndex(names)

	out := make([]catalog.Artist, len(artists))
	copy(out, artists)

	for i := range out {
		a := &out[i]
		if len(a.SimilarArtists) > 0 || a.Name == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, res, err
		}

		similar, cached, err := e.similarArtists(ctx, a.Name)
		if err != nil {
			res.Failed++
			e.log.Warn().Err(err).Str("artist", a.Name).Msg("similar artist lookup failed")
			continue
		}
		if cached {
			res.Cached++
		}

		ids := idx.match(similar, a.ID, e.cfg.MatchThreshold)
		if len(ids) == 0 {
			res.Unmatched++
			continue
		}

		a.SimilarArtists = ids
		res.Enriched++
		e.log.Debug().Str("artist", a.Name).Int("similar", len(ids)).Msg("artist enriched")
	}

	return out, res, nil
}

// similarArtists returns similar artists from cache or fetches them.
func (e *Enricher) similarArtists(ctx context.Context, artist string) ([]lastfm.SimilarArtist, bool, error) {
	if e.cache != nil {
		cached, found, err := e.cache.Lookup(ctx, artist)
		if err != nil {
			e.log.Warn().Err(err).Str("artist", artist).Msg("reading similar artist cache failed")
		} else if found {
			return cached, true, nil
		}
	}

	similar, err := e.source.GetSimilarArtists(artist, e.cfg.Limit)
	if err != nil {
		return nil, false, err
	}

	if e.cache != nil {
		if err := e.cache.SetSimilarArtists(ctx, artist, similar); err != nil {
			e.log.Warn().Err(err).Str("artist", artist).Msg("caching similar artists failed")
		}
	}

	return similar, false, nil
}
