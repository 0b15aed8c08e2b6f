package ui

import (
	"sort"
	"strings"
)

// MaxDistance is the largest edit distance still offered as a suggestion
const MaxDistance = 3

// MaxSuggestions caps the number of suggestions
const MaxSuggestions = 3

// FindSimilar returns the candidates closest to target by case-insensitive
// edit distance, nearest first
//
//	FindSimilar("titel", []string{"id", "title", "actors"}) // ["title"]
func FindSimilar(target string, candidates []string) []string {
	type match struct {
		value    string
		distance int
	}

	var matches []match
	for _, c := range candidates {
		d := Distance(strings.ToLower(target), strings.ToLower(c))
		if d <= MaxDistance {
			matches = append(matches, match{value: c, distance: d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	if len(matches) > MaxSuggestions {
		matches = matches[:MaxSuggestions]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.value
	}
	return out
}

// Distance is the Levenshtein distance between a and b
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
