package indexer

import (
	"errors"
	"math"
	"sort"
	"unicode/utf8"
)

// TokensPerRune approximates token counts (4 chars per token).
const TokensPerRune = 4.0

// IngestStats summarises a bulk ingestion run.
type IngestStats struct {
	// DocsProcessed is the number of documents attempted.
	DocsProcessed int `json:"docs_processed"`
	// DocsIngested is the number of documents whose chunks were stored.
	DocsIngested int `json:"docs_ingested"`
	// DocsEmpty is the number of documents that produced no chunks.
	DocsEmpty int `json:"docs_empty"`
	// DocsSkipped is the number of documents skipped because their source was already indexed.
	DocsSkipped int `json:"docs_skipped"`
	// DocsFailed is the number of documents that failed extraction, embedding or insertion.
	DocsFailed int `json:"docs_failed"`
	// ChunksIndexed is the number of chunks stored.
	ChunksIndexed int `json:"chunks_indexed"`
	// ChunkTokenStats describes the estimated token counts of the stored chunks.
	ChunkTokenStats ChunkTokenStats `json:"chunk_token_stats"`
}

// ChunkTokenStats contains statistics about token counts in chunks.
type ChunkTokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

type statsAccumulator struct {
	s           IngestStats
	tokenCounts []int
}

func newStatsAccumulator() *statsAccumulator {
	return &statsAccumulator{}
}

func (a *statsAccumulator) add(out ingestOutcome, err error) {
	a.s.DocsProcessed++
	switch {
	case errors.Is(err, ErrEmptyInput):
		a.s.DocsEmpty++
	case err != nil:
		a.s.DocsFailed++
	case out.skipped:
		a.s.DocsSkipped++
	default:
		a.s.DocsIngested++
		a.s.ChunksIndexed += len(out.chunks)
		for _, c := range out.chunks {
			a.tokenCounts = append(a.tokenCounts, estimateTokens(c.Text))
		}
	}
}

func (a *statsAccumulator) stats() IngestStats {
	s := a.s
	s.ChunkTokenStats = computeTokenStats(a.tokenCounts)
	return s
}

// estimateTokens estimates tokens from rune count, with a minimum of 1.
func estimateTokens(text string) int {
	n := int(math.Round(float64(utf8.RuneCountInString(text)) / TokensPerRune))
	if n < 1 {
		n = 1
	}
	return n
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range sorted {
		sum += count
	}
	mean := float64(sum) / float64(len(sorted))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100,
		P95:  sorted[p95Index],
	}
}
