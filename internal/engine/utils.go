// Completion: 100% - Name suggestions complete
package engine

import (
	"sort"
)

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	// Two rows are enough
	prev := make([]int, len(s2)+1)
	cur := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		cur[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(s2)]
}

// Suggest returns up to limit candidates close to name, closest first
func Suggest(name string, candidates []string, limit int) []string {
	type suggestion struct {
		name     string
		distance int
	}

	var suggestions []suggestion
	threshold := 2 // Maximum edit distance for suggestions
	if len(name) <= 2 {
		threshold = 1
	}

	seen := make(map[string]bool)
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		dist := levenshteinDistance(name, c)
		if dist <= threshold && dist > 0 {
			suggestions = append(suggestions, suggestion{c, dist})
		}
	}

	// Sort by distance (closest first)
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].distance == suggestions[j].distance {
			return suggestions[i].name < suggestions[j].name
		}
		return suggestions[i].distance < suggestions[j].distance
	})

	result := make([]string, 0, limit)
	for i := 0; i < len(suggestions) && i < limit; i++ {
		result = append(result, suggestions[i].name)
	}
	return result
}
