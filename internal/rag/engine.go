package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docrag/internal/contextutil"
	"docrag/internal/llm"
	"docrag/internal/vectorstore"
)

// Engine retrieves document context for questions.
type Engine struct {
	embedder llm.Embedder
	index    vectorstore.Index
}

// NewEngine creates a retrieval engine over index.
func NewEngine(embedder llm.Embedder, index vectorstore.Index) *Engine {
	return &Engine{
		embedder: embedder,
		index:    index,
	}
}

// Retrieve returns the k passages most similar to question joined by "\n",
// most similar first. It returns NoContextFound when nothing matches or the
// question cannot be embedded. Index failures are returned to the caller.
func (e *Engine) Retrieve(ctx context.Context, question string, k int) (string, error) {
	passages, err := e.Search(ctx, question, k)
	if err != nil {
		var embErr *llm.EmbeddingError
		if errors.As(err, &embErr) {
			return NoContextFound, nil
		}
		return "", err
	}
	if len(passages) == 0 {
		return NoContextFound, nil
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	return strings.Join(texts, "\n"), nil
}

// Search embeds question and returns up to k ranked passages.
// Non-positive k uses DefaultK. Embedding failures are returned as *llm.EmbeddingError.
func (e *Engine) Search(ctx context.Context, question string, k int) ([]Passage, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		k = DefaultK
	}

	logger.InfoContext(ctx, "retrieval started", "question_length", len(question), "k", k)

	if strings.TrimSpace(question) == "" {
		logger.WarnContext(ctx, "empty question, no context retrieved")
		return nil, nil
	}

	vectors, err := e.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		logger.WarnContext(ctx, "failed to embed question", "error", err)
		var embErr *llm.EmbeddingError
		if errors.As(err, &embErr) {
			return nil, err
		}
		return nil, &llm.EmbeddingError{Backend: "unknown", Err: err}
	}
	if len(vectors) != 1 {
		err := &llm.EmbeddingError{
			Backend: "unknown",
			Err:     fmt.Errorf("expected 1 embedding for question, got %d", len(vectors)),
		}
		logger.WarnContext(ctx, "failed to embed question", "error", err)
		return nil, err
	}

	matches, err := e.index.Query(ctx, vectors[0], k)
	if err != nil {
		logger.ErrorContext(ctx, "failed to query index", "error", err)
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	passages := make([]Passage, len(matches))
	for i, m := range matches {
		passages[i] = Passage{
			Text:       m.Record.Text,
			Source:     m.Record.Metadata.Source,
			ChunkIndex: m.Record.Metadata.ChunkIndex,
			Score:      m.Score,
			Rank:       i + 1,
		}
	}

	if len(passages) > 0 {
		topScores := make([]float32, 0, 3)
		for i := 0; i < len(passages) && i < 3; i++ {
			topScores = append(topScores, passages[i].Score)
		}
		logger.DebugContext(ctx, "top search results", "top_3_scores", topScores)
	}
	logger.InfoContext(ctx, "retrieval completed", "results_count", len(passages), "k_requested", k)

	return passages, nil
}
