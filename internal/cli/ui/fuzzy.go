package ui

import (
	"sort"
	"strings"
)

// MaxSuggestions caps the number of names FindSimilar returns
const MaxSuggestions = 3

// FindSimilar returns up to MaxSuggestions candidates within maxDistance edits
// of target, closest first. Matching ignores case. Candidates are also
// compared by their last dot-separated segment, so "User" suggests "app.User".
func FindSimilar(target string, candidates []string, maxDistance int) []string {
	type match struct {
		value    string
		distance int
	}

	target = strings.ToLower(target)
	var matches []match
	for _, c := range candidates {
		lower := strings.ToLower(c)
		d := LevenshteinDistance(target, lower)
		if i := strings.LastIndexByte(lower, '.'); i >= 0 {
			d = min(d, LevenshteinDistance(target, lower[i+1:]))
		}
		if d <= maxDistance {
			matches = append(matches, match{value: c, distance: d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	out := make([]string, 0, MaxSuggestions)
	for i := 0; i < len(matches) && i < MaxSuggestions; i++ {
		out = append(out, matches[i].value)
	}
	return out
}

// LevenshteinDistance returns the number of single-rune insertions,
// deletions and substitutions that turn a into b
func LevenshteinDistance(a, b string) int {
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
