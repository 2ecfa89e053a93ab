package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

const (
	backendOpenAI = "openai"

	// DefaultEmbeddingBatchSize bounds the number of inputs sent per request.
	DefaultEmbeddingBatchSize = 64
)

// EmbeddingsClient calls an OpenAI-compatible /v1/embeddings endpoint
// (llama.cpp, text-embeddings-inference, OpenAI).
type EmbeddingsClient struct {
	BaseURL   string
	APIKey    string
	Model     string
	dimension int
	batchSize int
	client    *http.Client
}

var _ Embedder = (*EmbeddingsClient)(nil)

// EmbeddingsOption configures an EmbeddingsClient.
type EmbeddingsOption func(*EmbeddingsClient)

// WithEmbeddingsHTTPClient replaces the HTTP client.
func WithEmbeddingsHTTPClient(hc *http.Client) EmbeddingsOption {
	return func(c *EmbeddingsClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithBatchSize splits large inputs into requests of at most n texts.
func WithBatchSize(n int) EmbeddingsOption {
	return func(c *EmbeddingsClient) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// NewEmbeddingsClient creates an embeddings client whose vectors must have
// the given dimension.
func NewEmbeddingsClient(baseURL, apiKey, model string, dimension int, opts ...EmbeddingsOption) *EmbeddingsClient {
	c := &EmbeddingsClient{
		BaseURL:   strings.TrimSuffix(baseURL, "/"),
		APIKey:    apiKey,
		Model:     model,
		dimension: dimension,
		batchSize: DefaultEmbeddingBatchSize,
		client:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EmbeddingsRequest is the /v1/embeddings request body.
type EmbeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingData is one vector of an EmbeddingsResponse.
type EmbeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// EmbeddingsResponse is the /v1/embeddings response body.
type EmbeddingsResponse struct {
	Data []EmbeddingData `json:"data"`
}

// Dimension returns the configured vector size.
func (c *EmbeddingsClient) Dimension() int {
	return c.dimension
}

// EmbedTexts embeds texts in order, one request per batch.
// Failures are returned as *EmbeddingError.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &EmbeddingError{Backend: backendOpenAI, Err: ErrEmptyBatch}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		vectors, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, &EmbeddingError{Backend: backendOpenAI, Err: err}
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (c *EmbeddingsClient) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(EmbeddingsRequest{Model: c.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded EmbeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// index is authoritative; some servers reorder data.
	sort.SliceStable(decoded.Data, func(i, j int) bool {
		return decoded.Data[i].Index < decoded.Data[j].Index
	})

	vectors := make([][]float32, len(decoded.Data))
	for i, d := range decoded.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}

	if err := checkVectors(vectors, len(texts), c.dimension); err != nil {
		return nil, err
	}
	return vectors, nil
}
