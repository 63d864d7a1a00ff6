package faq

import (
	"errors"
	"math"
	"sort"
)

var errDimensionMismatch = errors.New("query and corpus embeddings differ in dimension")

// cosineSimilarity returns 0 when either vector has zero magnitude.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// scoreAll computes the similarity of query against every cached vector,
// keeping corpus order.
func scoreAll(query []float32, vectors [][]float32) ([]float64, error) {
	scores := make([]float64, len(vectors))
	for i, vec := range vectors {
		if len(vec) != len(query) {
			return nil, errDimensionMismatch
		}
		scores[i] = cosineSimilarity(query, vec)
	}
	return scores, nil
}

// bestIndex picks the highest score; the first index wins ties.
func bestIndex(scores []float64) int {
	best := -1
	for i, score := range scores {
		if best < 0 || score > scores[best] {
			best = i
		}
	}
	return best
}

// rankEntries orders entries by descending score, stable on corpus order,
// and truncates to k when k > 0.
func rankEntries(corpus []Entry, scores []float64, k int) []ScoredEntry {
	ranked := make([]ScoredEntry, len(scores))
	for i, score := range scores {
		ranked[i] = ScoredEntry{Entry: corpus[i], Index: i, Score: score}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}
