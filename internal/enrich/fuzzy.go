package enrich

import (
	"strings"
	"unicode"

	"github.com/llehouerou/songrec/internal/lastfm"
)

// artistIndex resolves artist names to catalog ids.
type artistIndex struct {
	byNorm map[string]string // normalized name -> artist id
}

func newArtistIndex(names map[string]string) artistIndex {
	idx := artistIndex{byNorm: make(map[string]string, len(names))}
	for id, name := range names {
		norm := normalizeString(name)
		if norm == "" {
			continue
		}
		// Keep the smallest id on normalized collisions so matching is stable.
		if existing, ok := idx.byNorm[norm]; ok && existing < id {
			continue
		}
		idx.byNorm[norm] = id
	}
	return idx
}

// match resolves Last.fm similar artists to catalog ids using exact then
// fuzzy name matching. Order follows Last.fm's ranking, ids are unique and
// self is never returned.
func (idx artistIndex) match(similar []lastfm.SimilarArtist, self string, threshold float64) []string {
	var matched []string
	seen := map[string]bool{self: true}

	for _, sa := range similar {
		normSimilar := normalizeString(sa.Name)
		if normSimilar == "" {
			continue
		}

		id, ok := idx.byNorm[normSimilar]
		if !ok {
			id = idx.fuzzy(normSimilar, threshold)
		}
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		matched = append(matched, id)
	}

	return matched
}

func (idx artistIndex) fuzzy(norm string, threshold float64) string {
	bestID := ""
	bestNorm := ""
	bestScore := 0.0

	for candidate, id := range idx.byNorm {
		score := similarity(norm, candidate)
		if score < threshold {
			continue
		}
		// Ties go to the lexically smallest name for determinism.
		if score > bestScore || (score == bestScore && candidate < bestNorm) {
			bestScore = score
			bestID = id
			bestNorm = candidate
		}
	}

	return bestID
}

// normalizeString normalizes a string for comparison.
// Converts to lowercase, removes punctuation, and collapses whitespace.
func normalizeString(s string) string {
	s = strings.ToLower(s)

	var result strings.Builder
	lastWasSpace := true // Start true to trim leading spaces

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			lastWasSpace = false
		} else if unicode.IsSpace(r) || r == '-' || r == '_' {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		}
	}

	return strings.TrimSpace(result.String())
}

// similarity calculates the similarity between two strings using Levenshtein distance.
// Returns a value between 0 and 1, where 1 means identical.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	lenA := len([]rune(a))
	lenB := len([]rune(b))

	if lenA == 0 || lenB == 0 {
		return 0.0
	}

	dist := levenshteinDistance(a, b)
	return 1.0 - float64(dist)/float64(max(lenA, lenB))
}

// levenshteinDistance calculates the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	runesA := []rune(a)
	runesB := []rune(b)

	if len(runesA) == 0 {
		return len(runesB)
	}
	if len(runesB) == 0 {
		return len(runesA)
	}

	// Only two rows of the matrix are needed.
	prev := make([]int, len(runesB)+1)
	curr := make([]int, len(runesB)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(runesA); i++ {
		curr[0] = i

		for j := 1; j <= len(runesB); j++ {
			cost := 1
			if runesA[i-1] == runesB[j-1] {
				cost = 0
			}

			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}

		prev, curr = curr, prev
	}

	return prev[len(runesB)]
}
