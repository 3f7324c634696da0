package recommend

import (
	"math"

	"github.com/llehouerou/songrec/internal/catalog"
)

// Feature names a categorical song feature.
type Feature int

const (
	FeatureKey Feature = iota
	FeatureMode
)

func (f Feature) String() string {
	switch f {
	case FeatureKey:
		return "key"
	case FeatureMode:
		return "mode"
	default:
		return "unknown"
	}
}

// value returns the feature value and its confidence for a song.
func (f Feature) value(s catalog.Song) (v int, confidence float64, ok bool) {
	switch f {
	case FeatureKey:
		v, confidence = s.Key, s.KeyConfidence
		ok = v != catalog.MissingKey
	case FeatureMode:
		v, confidence = s.Mode, s.ModeConfidence
		ok = v != catalog.MissingMode
	}
	if math.IsNaN(confidence) || math.IsInf(confidence, 0) {
		confidence = 0
	}
	return v, confidence, ok
}

// CategoricalProfile is a confidence-weighted vote over the values of a
// categorical feature across a listening history.
type CategoricalProfile struct {
	Feature Feature
	Weights map[int]float64
	N       float64 // number of distinct history songs
}

// Weight returns the accumulated confidence for value v, 0 if unseen.
func (p CategoricalProfile) Weight(v int) float64 {
	return p.Weights[v]
}

// Match returns the normalized vote for value v. Unseen values and empty
// profiles score 0.
func (p CategoricalProfile) Match(v int) float64 {
	if p.N == 0 {
		return 0
	}
	return p.Weights[v] / p.N
}

// BuildCategoricalProfile sums, per feature value, the confidence each history
// song reports for it. Unknown song ids count toward N but add no weight.
func BuildCategoricalProfile(c *catalog.Corpus, f Feature, songIDs []string) CategoricalProfile {
	p := CategoricalProfile{
		Feature: f,
		Weights: make(map[int]float64),
	}

	seen := make(map[string]bool, len(songIDs))
	for _, id := range songIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		p.N++

		s, ok := c.Song(id)
		if !ok {
			continue
		}
		v, confidence, ok := f.value(s)
		if !ok {
			continue
		}
		p.Weights[v] += confidence
	}

	return p
}

// ContinuousStats is the mean and population standard deviation of a
// continuous feature over a candidate pool.
type ContinuousStats struct {
	Mean float64
	Std  float64
}

// PoolStats holds continuous statistics for every scored continuous feature.
type PoolStats struct {
	Loudness ContinuousStats
	Duration ContinuousStats
	Tempo    ContinuousStats
}

// NewPoolStats computes continuous statistics over a pool. An empty pool
// yields zero stats, which score every candidate 0.
func NewPoolStats(pool []catalog.Song) PoolStats {
	return PoolStats{
		Loudness: newContinuousStats(pool, func(s catalog.Song) float64 { return s.Loudness }),
		Duration: newContinuousStats(pool, func(s catalog.Song) float64 { return s.Duration }),
		Tempo:    newContinuousStats(pool, func(s catalog.Song) float64 { return s.Tempo }),
	}
}

func newContinuousStats(pool []catalog.Song, get func(catalog.Song) float64) ContinuousStats {
	if len(pool) == 0 {
		return ContinuousStats{}
	}

	n := float64(len(pool))
	sum := 0.0
	for i := range pool {
		sum += get(pool[i])
	}
	mean := sum / n

	sq := 0.0
	for i := range pool {
		d := get(pool[i]) - mean
		sq += d * d
	}

	return ContinuousStats{Mean: mean, Std: math.Sqrt(sq / n)}
}

// Profile is everything a candidate is scored against.
type Profile struct {
	Key  CategoricalProfile
	Mode CategoricalProfile
	Pool PoolStats
}

// BuildProfile builds categorical profiles from the history and continuous
// statistics from the pool.
func BuildProfile(c *catalog.Corpus, history []string, pool []catalog.Song) Profile {
	return Profile{
		Key:  BuildCategoricalProfile(c, FeatureKey, history),
		Mode: BuildCategoricalProfile(c, FeatureMode, history),
		Pool: NewPoolStats(pool),
	}
}
