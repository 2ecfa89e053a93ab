package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docrag/internal/contextutil"
	"docrag/internal/extract"
	"docrag/internal/llm"
	"docrag/internal/vectorstore"
)

// ErrEmptyInput marks a document whose extracted text is blank.
var ErrEmptyInput = errors.New("document has no text")

// Extractor turns a file on disk into plain text.
type Extractor interface {
	ExtractFile(ctx context.Context, path string) (*extract.Result, error)
}

// Pipeline chunks, embeds and indexes documents.
type Pipeline struct {
	embedder     llm.Embedder
	index        vectorstore.Index
	extractor    Extractor
	maxChunkSize int
	dedupe       bool
	workers      int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxChunkSize sets the chunk size in runes. Non-positive values keep DefaultMaxChunkSize.
func WithMaxChunkSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxChunkSize = n
		}
	}
}

// WithDedupe skips sources that already have records in the index.
func WithDedupe(enabled bool) Option {
	return func(p *Pipeline) {
		p.dedupe = enabled
	}
}

// WithExtractor sets the extractor used by IngestFile and IngestAll.
func WithExtractor(e Extractor) Option {
	return func(p *Pipeline) {
		p.extractor = e
	}
}

// WithWorkers sets the worker pool size used by IngestAll.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// NewPipeline creates an ingestion pipeline writing to index.
func NewPipeline(embedder llm.Embedder, index vectorstore.Index, opts ...Option) *Pipeline {
	p := &Pipeline{
		embedder:     embedder,
		index:        index,
		extractor:    extract.New(),
		maxChunkSize: DefaultMaxChunkSize,
		workers:      1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest chunks sourceText, embeds all chunks in one batch and inserts them
// tagged with sourceID. It reports whether records were stored. Blank input,
// embedding failures and index failures are logged and yield false; records
// already inserted are not rolled back.
func (p *Pipeline) Ingest(ctx context.Context, sourceText, sourceID string) bool {
	_, err := p.ingest(ctx, sourceText, sourceID)
	return err == nil
}

// IngestText behaves like Ingest but reports the number of chunks stored and
// the failure cause. Blank input yields ErrEmptyInput; a source skipped by
// dedupe yields 0 chunks and no error.
func (p *Pipeline) IngestText(ctx context.Context, sourceText, sourceID string) (int, error) {
	out, err := p.ingest(ctx, sourceText, sourceID)
	return len(out.chunks), err
}

// IngestFile extracts path and ingests its text under sourceID.
// Extraction failures are returned as *extract.ExtractionError; everything
// after extraction behaves like Ingest.
func (p *Pipeline) IngestFile(ctx context.Context, path, sourceID string) (bool, error) {
	if p.extractor == nil {
		return false, fmt.Errorf("no extractor configured")
	}
	res, err := p.extractor.ExtractFile(ctx, path)
	if err != nil {
		return false, err
	}
	return p.Ingest(ctx, res.Text, sourceID), nil
}

type ingestOutcome struct {
	chunks  []Chunk
	skipped bool
}

func (p *Pipeline) ingest(ctx context.Context, sourceText, sourceID string) (ingestOutcome, error) {
	logger := contextutil.LoggerFromContext(ctx).With("source", sourceID)

	if strings.TrimSpace(sourceText) == "" {
		logger.InfoContext(ctx, "skipping empty document")
		return ingestOutcome{}, ErrEmptyInput
	}

	if p.dedupe {
		exists, err := p.index.HasSource(ctx, sourceID)
		if err != nil {
			logger.ErrorContext(ctx, "failed to check existing source", "error", err)
			return ingestOutcome{}, err
		}
		if exists {
			logger.InfoContext(ctx, "source already indexed, skipping")
			return ingestOutcome{skipped: true}, nil
		}
	}

	chunks := SplitChunks(sourceText, sourceID, p.maxChunkSize)
	if len(chunks) == 0 {
		logger.InfoContext(ctx, "no chunks generated")
		return ingestOutcome{}, ErrEmptyInput
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed chunks", "chunks", len(chunks), "error", err)
		return ingestOutcome{}, err
	}
	if len(vectors) != len(chunks) {
		err := &llm.EmbeddingError{
			Backend: "unknown",
			Err:     fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(vectors)),
		}
		logger.ErrorContext(ctx, "failed to embed chunks", "error", err)
		return ingestOutcome{}, err
	}

	records := make([]vectorstore.NewRecord, len(chunks))
	for i, c := range chunks {
		records[i] = vectorstore.NewRecord{
			Vector:   vectors[i],
			Text:     c.Text,
			Metadata: vectorstore.Metadata{Source: sourceID, ChunkIndex: c.Index},
		}
	}

	if _, err := p.index.Insert(ctx, records); err != nil {
		logger.ErrorContext(ctx, "failed to insert records", "chunks", len(chunks), "error", err)
		return ingestOutcome{}, err
	}

	logger.InfoContext(ctx, "ingested document", "chunks", len(chunks))
	return ingestOutcome{chunks: chunks}, nil
}
