package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/config"
	"docrag/internal/rag"
	"docrag/internal/service"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		LogLevel:         slog.LevelInfo,
		LogFormat:        "text",
		DBPath:           filepath.Join(dir, "docrag.db"),
		UploadDir:        filepath.Join(dir, "uploads"),
		IndexBackend:     "badger",
		IndexPath:        filepath.Join(dir, "index"),
		EmbeddingBackend: "hash",
		EmbeddingDim:     128,
		LLMBaseURL:       "http://127.0.0.1:1",
		LLMModelName:     "test",
		LLMAPIKey:        "key",
		ChunkSize:        200,
		RetrievalK:       3,
		IngestWorkers:    2,
		BlobBackend:      "fs",
	}
}

func TestNew_OfflineStack(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t))
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	assert.Equal(t, 128, a.Index.Dimension())
	assert.Equal(t, 128, a.Embedder.Dimension())

	res, err := a.Documents.Upload(ctx, service.UploadRequest{
		FileName: "colors.txt",
		Data:     []byte("Grass is green. The sky is blue."),
		Title:    "Colors",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.VersionNumber)

	got, err := a.Engine.Retrieve(ctx, "what color is grass", 1)
	require.NoError(t, err)
	assert.True(t, strings.Contains(got, "green"), "context = %q", got)
}

func TestNew_ReopensPersistedIndex(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := New(ctx, cfg)
	require.NoError(t, err)
	_, err = a.Documents.Upload(ctx, service.UploadRequest{FileName: "a.txt", Data: []byte("Rivers flow to the sea."), Title: "A"})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := New(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	n, err := b.Index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	docs, err := b.Documents.List(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestNew_DimensionMismatchFails(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := New(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	cfg.EmbeddingDim = 64
	_, err = New(ctx, cfg)
	assert.Error(t, err)
}

func TestNew_EmptyIndexReturnsSentinel(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t))
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	got, err := a.Engine.Retrieve(ctx, "anything", 3)
	require.NoError(t, err)
	assert.Equal(t, rag.NoContextFound, got)
}
