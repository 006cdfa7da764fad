package services

// SharedKeywords returns the keywords present in both lists, in the order of a.
func SharedKeywords(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, w := range b {
		inB[w] = true
	}

	shared := make([]string, 0)
	seen := make(map[string]bool)
	for _, w := range a {
		if inB[w] && !seen[w] {
			seen[w] = true
			shared = append(shared, w)
		}
	}
	return shared
}

// JaccardSimilarity calculates |a ∩ b| / |a ∪ b|. Two empty sets have a
// similarity of 0.
func JaccardSimilarity(a, b []string) float64 {
	return jaccardFromShared(a, b, len(SharedKeywords(a, b)))
}

func jaccardFromShared(a, b []string, shared int) float64 {
	union := distinct(a) + distinct(b) - shared
	if union == 0 {
		return 0.0
	}
	return float64(shared) / float64(union)
}

func distinct(words []string) int {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return len(set)
}
