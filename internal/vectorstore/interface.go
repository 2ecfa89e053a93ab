package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_index.go -package=mocks docrag/internal/vectorstore Index

import (
	"context"
	"fmt"
)

// Metric is the similarity metric a collection is created with.
// It is fixed for the lifetime of the collection.
type Metric string

// MetricCosine ranks by cosine similarity (higher is closer).
const MetricCosine Metric = "cosine"

// Metadata is the closed set of attributes stored alongside every record.
type Metadata struct {
	// Source identifies the document the chunk came from.
	Source string `json:"source"`
	// ChunkIndex is the position of the chunk within its source (starts at 0).
	ChunkIndex int `json:"chunk_index"`
}

// Payload returns the metadata as a flat key/value map for backends that store
// schemaless payloads.
func (m Metadata) Payload() map[string]any {
	return map[string]any{
		"source":      m.Source,
		"chunk_index": m.ChunkIndex,
	}
}

// MetadataFromPayload is the inverse of Payload. Unknown keys are ignored.
func MetadataFromPayload(payload map[string]any) Metadata {
	var m Metadata
	m.Source, _ = payload["source"].(string)
	switch v := payload["chunk_index"].(type) {
	case int:
		m.ChunkIndex = v
	case int64:
		m.ChunkIndex = int(v)
	case float64:
		m.ChunkIndex = int(v)
	}
	return m
}

// NewRecord is a record to be inserted. The index assigns its ID.
type NewRecord struct {
	Vector   []float32
	Text     string
	Metadata Metadata
}

// Record is a stored, immutable index entry.
type Record struct {
	ID       string    `json:"id"`
	Vector   []float32 `json:"vector"`
	Text     string    `json:"text"`
	Metadata Metadata  `json:"metadata"`
}

// Match is a query hit.
type Match struct {
	Record Record
	Score  float32
}

// Index persists records and answers nearest-neighbour queries.
// Implementations are safe for concurrent use.
type Index interface {
	// Insert appends records and returns their generated IDs in input order.
	// Existing records are never overwritten or deduplicated.
	Insert(ctx context.Context, records []NewRecord) ([]string, error)

	// Query returns up to k records ranked most similar first.
	// An empty collection yields an empty result and no error.
	Query(ctx context.Context, vector []float32, k int) ([]Match, error)

	// HasSource reports whether any record carries the given source.
	HasSource(ctx context.Context, source string) (bool, error)

	// DeleteBySource removes every record with the given source and returns how many were removed.
	DeleteBySource(ctx context.Context, source string) (int, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Dimension returns the fixed vector size of the collection.
	Dimension() int
}

func checkDimension(op string, want int, vec []float32) error {
	if len(vec) != want {
		return &IndexError{
			Op:  op,
			Err: fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, want, len(vec)),
		}
	}
	return nil
}
