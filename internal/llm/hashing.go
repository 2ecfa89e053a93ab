package llm

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

const (
	backendHash = "hash"

	// DefaultHashDimension matches all-MiniLM-L6-v2 so indexes can switch backends.
	DefaultHashDimension = 384
)

// HashEmbedder is an offline embedder that hashes word tokens into a fixed
// number of buckets (feature hashing) and L2-normalises the counts.
// Texts sharing vocabulary get high cosine similarity. It needs no model and
// is deterministic, which makes it suitable for tests and air-gapped setups.
type HashEmbedder struct {
	dimension    int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

var _ Embedder = (*HashEmbedder)(nil)

// NewHashEmbedder creates a hashing embedder. A non-positive dimension selects DefaultHashDimension.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = DefaultHashDimension
	}
	return &HashEmbedder{
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
		stopwords:    defaultStopwords(),
	}
}

// Dimension returns the number of hash buckets.
func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

// EmbedTexts embeds each text independently. Texts without any content
// tokens map to the zero vector.
func (e *HashEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &EmbeddingError{Backend: backendHash, Err: ErrEmptyBatch}
	}
	if err := ctx.Err(); err != nil {
		return nil, &EmbeddingError{Backend: backendHash, Err: err}
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e *HashEmbedder) embed(text string) []float32 {
	counts := make([]float64, e.dimension)
	for _, tok := range e.tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		counts[h.Sum32()%uint32(e.dimension)]++
	}

	norm := 0.0
	for _, v := range counts {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, e.dimension)
	if norm == 0 {
		return vec
	}
	for i, v := range counts {
		vec[i] = float32(v / norm)
	}
	return vec
}

func (e *HashEmbedder) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
