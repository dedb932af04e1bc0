package ui

import (
	"sort"
	"strings"
)

const (
	// maxSuggestDistance is the largest edit distance still offered as a suggestion
	maxSuggestDistance = 3
	// maxSuggestions caps the number of suggestions
	maxSuggestions = 3
)

// Suggest returns up to three candidates close to target, closest first.
// Matching is case-insensitive; ties keep the candidate order.
//
// Example:
//
//	Suggest("accounts_usr", []string{"accounts_user", "blog_post"})
//	// Returns: ["accounts_user"]
func Suggest(target string, candidates []string) []string {
	type match struct {
		value    string
		distance int
	}

	var matches []match
	lowered := strings.ToLower(target)
	for _, candidate := range candidates {
		dist := LevenshteinDistance(lowered, strings.ToLower(candidate))
		if dist <= maxSuggestDistance {
			matches = append(matches, match{value: candidate, distance: dist})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	result := make([]string, 0, maxSuggestions)
	for i := 0; i < len(matches) && i < maxSuggestions; i++ {
		result = append(result, matches[i].value)
	}
	return result
}

// LevenshteinDistance returns the minimum number of single-rune edits
// (insertions, deletions or substitutions) turning s1 into s2
func LevenshteinDistance(s1, s2 string) int {
	a, b := []rune(s1), []rune(s2)
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minOf(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func minOf(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
