package textutil

import (
	"cmp"
	"slices"
)

type trigram [3]rune

func trigrams(s string) []trigram {
	runes := []rune(s)
	padded := make([]rune, 0, len(runes)+3)
	padded = append(padded, ' ', ' ')
	padded = append(padded, runes...)
	padded = append(padded, ' ')

	out := make([]trigram, 0, len(runes)+1)
	for i := 0; i+3 <= len(padded); i++ {
		out = append(out, trigram{padded[i], padded[i+1], padded[i+2]})
	}
	return out
}

// TrigramSimilarity scores how much of query appears in candidate. It returns
// the fraction of query trigrams present anywhere in candidate; 1 means every
// query trigram was found.
func TrigramSimilarity(query, candidate string) float64 {
	qt := trigrams(query)
	if len(qt) == 0 {
		return 0
	}
	present := make(map[trigram]struct{}, len(candidate)+1)
	for _, t := range trigrams(candidate) {
		present[t] = struct{}{}
	}
	var hits int
	for _, t := range qt {
		if _, ok := present[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(qt))
}

// Scored pairs a candidate index with its similarity.
type Scored struct {
	Index int
	Score float64
}

// BestN scores query against every candidate and returns the n highest,
// ordered by descending score. Ties keep candidate order.
func BestN(query string, candidates []string, n int) []Scored {
	if n <= 0 || len(candidates) == 0 {
		return nil
	}
	scored := make([]Scored, 0, len(candidates))
	for i, c := range candidates {
		scored = append(scored, Scored{Index: i, Score: TrigramSimilarity(query, c)})
	}
	slices.SortStableFunc(scored, func(a, b Scored) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(scored) > n {
		scored = scored[:n]
	}
	return scored
}
