package recommend

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/llehouerou/songrec/internal/catalog"
)

// ErrInvalidWeights is returned when a weight vector can't be used for scoring.
var ErrInvalidWeights = errors.New("recommend: invalid weights")

// Weights scales the key, mode, loudness, duration and tempo sub-scores, in that order.
type Weights [5]float64

// DefaultWeights favors key and mode agreement over continuous closeness.
var DefaultWeights = Weights{3, 2, 1, 1, 1}

// WeightsFromSlice converts a configured weight list.
func WeightsFromSlice(ws []float64) (Weights, error) {
	var w Weights
	if len(ws) != len(w) {
		return w, fmt.Errorf("%w: want %d values, got %d", ErrInvalidWeights, len(w), len(ws))
	}
	copy(w[:], ws)
	return w, w.validate()
}

func (w Weights) validate() error {
	for i, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: value %d is not finite", ErrInvalidWeights, i)
		}
	}
	return nil
}

// Closeness is 1 when value equals the mean, decays linearly to 0 at one
// standard deviation and stays 0 beyond. A degenerate deviation scores 0.
func Closeness(value float64, st ContinuousStats) float64 {
	if st.Std == 0 || math.IsNaN(st.Std) || math.IsInf(st.Std, 0) {
		return 0
	}
	return max(0, (st.Std-math.Abs(st.Mean-value))/st.Std)
}

// SubScores returns the per-feature scores of a candidate in weight order.
func SubScores(s catalog.Song, p Profile) [5]float64 {
	return [5]float64{
		p.Key.Match(s.Key),
		p.Mode.Match(s.Mode),
		Closeness(s.Loudness, p.Pool.Loudness),
		Closeness(s.Duration, p.Pool.Duration),
		Closeness(s.Tempo, p.Pool.Tempo),
	}
}

// Score computes the weighted match of a candidate against a profile.
func Score(s catalog.Song, p Profile, w Weights) float64 {
	sub := SubScores(s, p)
	total := 0.0
	for i := range sub {
		total += sub[i] * w[i]
	}
	return total
}

// Scored is a pool row with its score.
type Scored struct {
	Song  catalog.Song
	Score float64
}

// rank scores every pool row, drops rows without a finite score and sorts by
// score descending. Ties are broken by song id ascending.
func rank(pool []catalog.Song, p Profile, w Weights) []Scored {
	scored := make([]Scored, 0, len(pool))
	for i := range pool {
		score := Score(pool[i], p, w)
		if math.IsNaN(score) || math.IsInf(score, 0) {
			continue
		}
		scored = append(scored, Scored{Song: pool[i], Score: score})
	}

	slices.SortStableFunc(scored, func(a, b Scored) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Song.ID, b.Song.ID)
	})

	return scored
}
