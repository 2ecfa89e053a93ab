// Package app builds the shared object graph used by the API server and the CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-redis/redis/v8"

	"docrag/internal/blob"
	"docrag/internal/config"
	"docrag/internal/extract"
	"docrag/internal/indexer"
	"docrag/internal/llm"
	"docrag/internal/rag"
	"docrag/internal/service"
	"docrag/internal/storage"
	"docrag/internal/vectorstore"
)

// App holds the wired components. Close releases them in reverse order.
type App struct {
	Config    *config.Config
	DB        *sql.DB
	Blobs     blob.Store
	Index     vectorstore.Index
	Embedder  llm.Embedder
	LLM       *llm.Client
	Pipeline  *indexer.Pipeline
	Engine    *rag.Engine
	Documents service.DocumentService
	Chat      service.ChatService

	closers []func() error
}

// ConfigureLogging installs the default slog logger for cfg, writing to w.
func ConfigureLogging(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// New opens storage, the vector index and the model clients described by cfg.
// On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if a.DB, err = storage.New(cfg.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.closers = append(a.closers, a.DB.Close)
	if err = storage.Migrate(a.DB); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.InfoContext(ctx, "Database initialized", "path", cfg.DBPath)

	if a.Blobs, err = openBlobs(ctx, cfg); err != nil {
		return nil, err
	}

	a.LLM = llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	if a.Embedder, err = a.openEmbedder(ctx, cfg); err != nil {
		return nil, err
	}

	if a.Index, err = a.openIndex(ctx, cfg); err != nil {
		return nil, err
	}

	extractOpts := []extract.Option{}
	if cfg.OCRSummarize {
		extractOpts = append(extractOpts, extract.WithSummarizer(llm.NewSummarizer(a.LLM, 0)))
	}
	extractor := extract.New(extractOpts...)

	a.Pipeline = indexer.NewPipeline(a.Embedder, a.Index,
		indexer.WithExtractor(extractor),
		indexer.WithMaxChunkSize(cfg.ChunkSize),
		indexer.WithDedupe(cfg.IngestDedupe),
		indexer.WithWorkers(cfg.IngestWorkers),
	)
	a.Engine = rag.NewEngine(a.Embedder, a.Index)

	a.Documents = service.NewDocumentService(
		storage.NewDocumentRepo(a.DB),
		storage.NewVersionRepo(a.DB),
		a.Blobs,
		extractor,
		a.Pipeline,
		a.Index,
	)
	a.Chat = service.NewChatService(a.LLM, a.Engine, a.Documents, cfg.RetrievalK)

	return a, nil
}

// Close releases every opened resource. Errors after the first are dropped.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

func openBlobs(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.BlobBackend {
	case "minio":
		store, err := blob.NewMinioStore(ctx, blob.MinioConfig{
			Endpoint:        cfg.MinIOEndpoint,
			AccessKeyID:     cfg.MinIOAccessKey,
			SecretAccessKey: cfg.MinIOSecretKey,
			Bucket:          cfg.MinIOBucket,
			UseSSL:          cfg.MinIOUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open minio blob store: %w", err)
		}
		slog.InfoContext(ctx, "Blob store ready", "backend", "minio", "bucket", cfg.MinIOBucket)
		return store, nil
	default:
		store, err := blob.NewFSStore(cfg.UploadDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open upload directory: %w", err)
		}
		slog.InfoContext(ctx, "Blob store ready", "backend", "fs", "dir", cfg.UploadDir)
		return store, nil
	}
}

func (a *App) openEmbedder(ctx context.Context, cfg *config.Config) (llm.Embedder, error) {
	var (
		embedder llm.Embedder
		err      error
	)
	switch cfg.EmbeddingBackend {
	case "hash":
		embedder = llm.NewHashEmbedder(cfg.EmbeddingDim)
	case "langchain":
		embedder, err = llm.NewLangchainEmbedder(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingDim)
		if err != nil {
			return nil, fmt.Errorf("failed to create langchain embedder: %w", err)
		}
	default:
		embedder = llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingDim)
	}

	if cfg.EmbeddingRPS > 0 && cfg.EmbeddingBackend != "hash" {
		embedder = llm.NewRateLimitedEmbedder(embedder, cfg.EmbeddingRPS)
	}

	if cfg.EmbeddingCacheURL != "" {
		var rdb *redis.Client
		rdb, err = llm.NewRedisClient(ctx, cfg.EmbeddingCacheURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		embedder = llm.NewCachedEmbedder(embedder, rdb, cfg.EmbeddingModelName, 0)
		slog.InfoContext(ctx, "Embedding cache enabled")
	}

	slog.InfoContext(ctx, "Embedder ready", "backend", cfg.EmbeddingBackend, "dimension", embedder.Dimension())
	return embedder, nil
}

func (a *App) openIndex(ctx context.Context, cfg *config.Config) (vectorstore.Index, error) {
	switch cfg.IndexBackend {
	case "qdrant":
		store, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection, cfg.EmbeddingDim)
		if err != nil {
			return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if err := store.EnsureCollection(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure Qdrant collection: %w", err)
		}
		slog.InfoContext(ctx, "Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.EmbeddingDim)
		return store, nil
	default:
		idx, err := vectorstore.OpenBadger(cfg.IndexPath, vectorstore.BadgerOptions{Dimension: cfg.EmbeddingDim})
		if err != nil {
			return nil, fmt.Errorf("failed to open vector index: %w", err)
		}
		a.closers = append(a.closers, idx.Close)
		slog.InfoContext(ctx, "Vector index ready", "path", cfg.IndexPath, "dimension", idx.Dimension())
		return idx, nil
	}
}
