package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

const backendLangchain = "langchain"

// LangchainEmbedder embeds texts through langchaingo's OpenAI client.
// It batches and strips newlines the way langchaingo does for every provider.
type LangchainEmbedder struct {
	embedder  embeddings.Embedder
	dimension int
}

var _ Embedder = (*LangchainEmbedder)(nil)

// NewLangchainEmbedder creates an embedder against an OpenAI-compatible endpoint.
// An empty apiKey is replaced with "none" for local services without authentication.
func NewLangchainEmbedder(baseURL, apiKey, model string, dimension int) (*LangchainEmbedder, error) {
	if apiKey == "" {
		apiKey = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(baseURL+"/v1"),
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &LangchainEmbedder{embedder: embedder, dimension: dimension}, nil
}

// Dimension returns the configured vector size.
func (e *LangchainEmbedder) Dimension() int {
	return e.dimension
}

// EmbedTexts generates one embedding per text.
func (e *LangchainEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &EmbeddingError{Backend: backendLangchain, Err: ErrEmptyBatch}
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, &EmbeddingError{Backend: backendLangchain, Err: err}
	}
	if err := checkVectors(vectors, len(texts), e.dimension); err != nil {
		return nil, &EmbeddingError{Backend: backendLangchain, Err: err}
	}
	return vectors, nil
}
