package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks docrag/internal/llm Embedder

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyBatch is returned when EmbedTexts is called without any input.
var ErrEmptyBatch = errors.New("empty input array")

// Embedder maps texts to fixed-length vectors.
type Embedder interface {
	// EmbedTexts returns one vector per input, in input order.
	// Every vector has length Dimension().
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector size produced by the embedder.
	Dimension() int
}

// EmbeddingError reports a failed embedding call.
type EmbeddingError struct {
	Backend string
	Err     error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding (%s): %v", e.Backend, e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// checkVectors validates the shape of an embedder response.
func checkVectors(vectors [][]float32, want, dim int) error {
	if len(vectors) != want {
		return fmt.Errorf("expected %d embeddings, got %d", want, len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) != dim {
			return fmt.Errorf("embedding %d has size %d, expected %d", i, len(vec), dim)
		}
	}
	return nil
}
