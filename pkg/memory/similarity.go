package memory

import "strings"

// Similarity computes the Jaccard index over the unique lowercased words of
// two strings: |intersection| / |union|, in [0, 1]. It is order-independent
// and case-insensitive.
//
// This is intentionally a coarse bag-of-words dedup heuristic, not a
// semantic similarity model. It must stay self-contained; nothing in the
// dedup path may call out to an external service.
func Similarity(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 0
	}

	intersection := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			intersection++
		}
	}

	union := len(wordsA) + len(wordsB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// wordSet splits a string on whitespace into a set of lowercased words.
func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}
