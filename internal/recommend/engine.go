// Package recommend picks one song for a listener from a listening history.
//
// A recommendation expands the history into similar artists, builds a
// feature profile of the liked songs and scores candidate songs against it.
// Every stage that comes up empty falls back to the next, ending in a uniform
// random pick from the catalog.
package recommend

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"slices"

	"github.com/rs/zerolog"

	"github.com/llehouerou/songrec/internal/catalog"
)

// Strategy names the branch that produced a recommendation.
type Strategy string

const (
	StrategyColdStart      Strategy = "cold_start"
	StrategySimilarArtists Strategy = "similar_artists"
	StrategyFullCatalog    Strategy = "full_catalog"
	StrategyRandomFallback Strategy = "random_fallback"
)

// Recommendation is the song chosen for a history.
type Recommendation struct {
	SongID     string
	Title      string
	ArtistName string
	Strategy   Strategy
	Score      float64 // 0 for random picks
}

func (r Recommendation) String() string {
	return fmt.Sprintf("song_id: %s, %s by %s", r.SongID, r.Title, r.ArtistName)
}

type randSource interface {
	IntN(n int) int
}

// globalRand uses the concurrency-safe top-level generator.
type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) } //nolint:gosec // not security-sensitive

// Engine recommends songs from an immutable corpus. It is safe for
// concurrent use.
type Engine struct {
	corpus    *catalog.Corpus
	weights   Weights
	diversity DiversityPolicy
	seed      uint64
	seeded    bool
	log       zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeights overrides DefaultWeights.
func WithWeights(w Weights) Option {
	return func(e *Engine) { e.weights = w }
}

// WithSeed makes random choices reproducible. Each call derives its own
// generator from the seed and the history, so equal histories get equal answers.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.seed = seed
		e.seeded = true
	}
}

// WithDiversity replaces the default FixedArtist policy.
func WithDiversity(p DiversityPolicy) Option {
	return func(e *Engine) { e.diversity = p }
}

// WithLogger sets the logger used for fallback diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an engine over the corpus. A nil corpus is reported as
// catalog.ErrEmptyCorpus and non-finite weights as ErrInvalidWeights.
func New(c *catalog.Corpus, opts ...Option) (*Engine, error) {
	if c == nil || c.Len() == 0 {
		return nil, catalog.ErrEmptyCorpus
	}

	e := &Engine{
		corpus:  c,
		weights: DefaultWeights,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.weights.validate(); err != nil {
		return nil, err
	}

	if e.diversity == nil {
		e.diversity = NewFixedArtist(c, e.rng(nil))
	}

	e.log.Debug().
		Int("songs", c.Len()).
		Int("artists", c.ArtistCount()).
		Strs("diversity_artists", e.diversity.ExtraArtists()).
		Msg("recommender ready")

	return e, nil
}

// Weights returns the weight vector in use.
func (e *Engine) Weights() Weights {
	return e.weights
}

// rng returns the generator for one call. Seeded engines derive it from the
// history so concurrent calls share no state.
func (e *Engine) rng(history []string) randSource {
	if !e.seeded {
		return globalRand{}
	}

	ids := slices.Clone(history)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	h := fnv.New64a()
	for _, id := range ids {
		_, _ = h.Write([]byte(id))
		_, _ = h.Write([]byte{0})
	}
	return rand.New(rand.NewPCG(e.seed, h.Sum64())) //nolint:gosec // not security-sensitive
}

// Recommend returns one song for the history. It never fails: when nothing
// can be ranked it falls back to a uniform random song from the catalog.
// Songs in the history are never returned unless the history covers the
// whole catalog.
func (e *Engine) Recommend(history []string) Recommendation {
	rng := e.rng(history)

	if len(history) == 0 {
		return e.randomPick(rng, nil, StrategyColdStart)
	}

	exclude := make(map[string]bool, len(history))
	for _, id := range history {
		exclude[id] = true
	}

	pool, strategy := e.selectPool(history, exclude)
	profile := BuildProfile(e.corpus, history, pool)
	ranked := rank(pool, profile, e.weights)

	if len(ranked) == 0 {
		e.log.Debug().
			Int("history", len(history)).
			Msg("no rankable candidate, falling back to random pick")
		return e.randomPick(rng, exclude, StrategyRandomFallback)
	}

	top := ranked[0]
	e.log.Debug().
		Str("strategy", string(strategy)).
		Int("pool", len(pool)).
		Str("song_id", top.Song.ID).
		Float64("score", top.Score).
		Msg("ranked recommendation")

	return Recommendation{
		SongID:     top.Song.ID,
		Title:      top.Song.Title,
		ArtistName: e.corpus.ArtistName(top.Song.ArtistID),
		Strategy:   strategy,
		Score:      top.Score,
	}
}

// selectPool walks the similarity groups from most to least similar and
// returns the first non-empty pool, or the full catalog.
func (e *Engine) selectPool(history []string, exclude map[string]bool) ([]catalog.Song, Strategy) {
	extra := e.diversity.ExtraArtists()

	for _, group := range SimilarArtistsRanked(e.corpus, history) {
		artists := make([]string, 0, len(group.Artists)+len(extra))
		artists = append(artists, group.Artists...)
		artists = append(artists, extra...)

		if pool := buildPool(e.corpus, artists, exclude); len(pool) > 0 {
			return pool, StrategySimilarArtists
		}
		e.log.Debug().
			Int("frequency", group.Frequency).
			Int("artists", len(group.Artists)).
			Msg("similarity group yields no candidate")
	}

	return fullPool(e.corpus, exclude), StrategyFullCatalog
}

// randomPick returns a uniformly chosen catalog song outside exclude. When
// every song is excluded it picks from the whole catalog instead.
func (e *Engine) randomPick(rng randSource, exclude map[string]bool, strategy Strategy) Recommendation {
	var s catalog.Song
	if candidates := e.unexcluded(exclude); len(candidates) > 0 {
		s = e.corpus.SongAt(candidates[rng.IntN(len(candidates))])
	} else {
		s = e.corpus.SongAt(rng.IntN(e.corpus.Len()))
	}

	return Recommendation{
		SongID:     s.ID,
		Title:      s.Title,
		ArtistName: e.corpus.ArtistName(s.ArtistID),
		Strategy:   strategy,
	}
}

func (e *Engine) unexcluded(exclude map[string]bool) []int {
	if len(exclude) == 0 {
		return nil
	}
	idxs := make([]int, 0, e.corpus.Len())
	for i := range e.corpus.Len() {
		if !exclude[e.corpus.SongAt(i).ID] {
			idxs = append(idxs, i)
		}
	}
	return idxs
}
