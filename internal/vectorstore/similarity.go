package vectorstore

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

// CosineSimilarity returns the cosine of the angle between a and b.
// Zero vectors have similarity 0 with everything.
func CosineSimilarity(a, b []float32) float32 {
	n := min(len(a), len(b))
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// topK sorts matches by score descending and keeps the first k.
// Equal scores are ordered by source, then chunk index.
func topK(matches []Match, k int) []Match {
	slices.SortStableFunc(matches, func(a, b Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		if c := strings.Compare(a.Record.Metadata.Source, b.Record.Metadata.Source); c != 0 {
			return c
		}
		return cmp.Compare(a.Record.Metadata.ChunkIndex, b.Record.Metadata.ChunkIndex)
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
