package vectorstore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryIndex(t *testing.T, dim int) *BadgerIndex {
	t.Helper()
	idx, err := OpenBadger("", BadgerOptions{Dimension: dim, InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func rec(source string, chunk int, text string, vec ...float32) NewRecord {
	return NewRecord{Vector: vec, Text: text, Metadata: Metadata{Source: source, ChunkIndex: chunk}}
}

func TestOpenBadger_RequiresDimension(t *testing.T) {
	_, err := OpenBadger("", BadgerOptions{InMemory: true})
	require.Error(t, err)

	var ie *IndexError
	assert.True(t, errors.As(err, &ie))
}

func TestOpenBadger_ReopenSharesHandle(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := OpenBadger(dir, BadgerOptions{Dimension: 2})
	require.NoError(t, err)
	second, err := OpenBadger(dir, BadgerOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, second.Dimension())

	_, err = first.Insert(ctx, []NewRecord{rec("a.txt", 0, "alpha", 1, 0)})
	require.NoError(t, err)

	n, err := second.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, first.Close())
	// second keeps the database open
	n, err = second.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, second.Close())

	_, err = second.Count(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenBadger_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	idx, err := OpenBadger(dir, BadgerOptions{Dimension: 3})
	require.NoError(t, err)
	_, err = idx.Insert(ctx, []NewRecord{rec("a.txt", 0, "alpha", 1, 0, 0)})
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	idx, err = OpenBadger(dir, BadgerOptions{})
	require.NoError(t, err)
	defer idx.Close()

	assert.Equal(t, 3, idx.Dimension())
	matches, err := idx.Query(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "alpha", matches[0].Record.Text)
}

func TestOpenBadger_DimensionMismatchOnReopen(t *testing.T) {
	dir := t.TempDir()

	idx, err := OpenBadger(dir, BadgerOptions{Dimension: 3})
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	_, err = OpenBadger(dir, BadgerOptions{Dimension: 4})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestBadgerIndex_InsertQuery(t *testing.T) {
	ctx := context.Background()
	idx := newMemoryIndex(t, 3)

	ids, err := idx.Insert(ctx, []NewRecord{
		rec("docs/sky.txt", 0, "The sky is blue.", 1, 0, 0),
		rec("docs/sky.txt", 1, "Grass is green.", 0, 1, 0),
		rec("docs/sky.txt", 2, "Water is wet.", 0, 0, 1),
	})
	require.NoError(t, err)
	require.Len(t, ids, 3)
	for i, id := range ids {
		assert.True(t, strings.HasPrefix(id, "sky.txt_"), "id %q", id)
		for j := range ids[:i] {
			assert.NotEqual(t, ids[j], id)
		}
	}

	matches, err := idx.Query(ctx, []float32{0.1, 0.9, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "Grass is green.", matches[0].Record.Text)
	assert.Equal(t, ids[1], matches[0].Record.ID)
	assert.Equal(t, Metadata{Source: "docs/sky.txt", ChunkIndex: 1}, matches[0].Record.Metadata)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
}

func TestBadgerIndex_QueryReturnsAllWhenKExceedsCount(t *testing.T) {
	ctx := context.Background()
	idx := newMemoryIndex(t, 2)

	_, err := idx.Insert(ctx, []NewRecord{rec("a", 0, "a", 1, 0), rec("a", 1, "b", 0, 1)})
	require.NoError(t, err)

	matches, err := idx.Query(ctx, []float32{1, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestBadgerIndex_QueryEmptyCollection(t *testing.T) {
	idx := newMemoryIndex(t, 2)

	matches, err := idx.Query(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestBadgerIndex_QueryValidation(t *testing.T) {
	ctx := context.Background()
	idx := newMemoryIndex(t, 2)

	_, err := idx.Query(ctx, []float32{1, 0}, 0)
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = idx.Query(ctx, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	var ie *IndexError
	assert.True(t, errors.As(err, &ie))
	assert.Equal(t, "query", ie.Op)
}

func TestBadgerIndex_InsertDimensionMismatchWritesNothing(t *testing.T) {
	ctx := context.Background()
	idx := newMemoryIndex(t, 2)

	_, err := idx.Insert(ctx, []NewRecord{rec("a", 0, "ok", 1, 0), rec("a", 1, "bad", 1, 0, 0)})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBadgerIndex_DuplicateInsertsAreKept(t *testing.T) {
	ctx := context.Background()
	idx := newMemoryIndex(t, 2)

	for range 2 {
		_, err := idx.Insert(ctx, []NewRecord{rec("a.txt", 0, "same", 1, 0)})
		require.NoError(t, err)
	}

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	matches, err := idx.Query(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.NotEqual(t, matches[0].Record.ID, matches[1].Record.ID)
}

func TestBadgerIndex_HasSourceAndDelete(t *testing.T) {
	ctx := context.Background()
	idx := newMemoryIndex(t, 2)

	_, err := idx.Insert(ctx, []NewRecord{
		rec("a.txt", 0, "a0", 1, 0),
		rec("a.txt", 1, "a1", 1, 0),
		rec("ab.txt", 0, "ab", 0, 1),
	})
	require.NoError(t, err)

	has, err := idx.HasSource(ctx, "a.txt")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = idx.HasSource(ctx, "a")
	require.NoError(t, err)
	assert.False(t, has, "source lookups must not match prefixes")

	deleted, err := idx.DeleteBySource(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	has, err = idx.HasSource(ctx, "a.txt")
	require.NoError(t, err)
	assert.False(t, has)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	deleted, err = idx.DeleteBySource(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestBadgerIndex_ConcurrentInsertAndQuery(t *testing.T) {
	ctx := context.Background()
	idx := newMemoryIndex(t, 2)

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := idx.Insert(ctx, []NewRecord{rec("c.txt", w, "x", 1, float32(w))})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := idx.Query(ctx, []float32{1, 1}, 3)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}

func TestNewRecordID(t *testing.T) {
	a := NewRecordID("/tmp/uploads/report.pdf", 3)
	b := NewRecordID("/tmp/uploads/report.pdf", 3)

	assert.True(t, strings.HasPrefix(a, "report.pdf_3_"))
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(NewRecordID("", 0), "doc_0_"))
}

func TestBadgerIndex_InsertLargeDocument(t *testing.T) {
	ctx := context.Background()
	const dim, n = 1536, 1200
	idx := newMemoryIndex(t, dim)

	records := make([]NewRecord, n)
	for i := range records {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = float32((i*31+j*17)%997)/997 + 0.123456
		}
		records[i] = NewRecord{
			Vector:   vec,
			Text:     strings.Repeat("a long sentence from a long document. ", 12),
			Metadata: Metadata{Source: "manual.pdf", ChunkIndex: i},
		}
	}

	ids, err := idx.Insert(ctx, records)
	require.NoError(t, err)
	assert.Len(t, ids, n)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, count)

	matches, err := idx.Query(ctx, records[7].Vector, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 7, matches[0].Record.Metadata.ChunkIndex)

	deleted, err := idx.DeleteBySource(ctx, "manual.pdf")
	require.NoError(t, err)
	assert.Equal(t, n, deleted)
}

func TestBadgerIndex_QueryTiesOrderedBySourceAndChunk(t *testing.T) {
	ctx := context.Background()
	idx := newMemoryIndex(t, 2)

	_, err := idx.Insert(ctx, []NewRecord{
		rec("b.txt", 10, "b10", 1, 0),
		rec("b.txt", 2, "b2", 1, 0),
		rec("a.txt", 3, "a3", 1, 0),
		rec("b.txt", 0, "b0", 1, 0),
	})
	require.NoError(t, err)

	matches, err := idx.Query(ctx, []float32{1, 0}, 4)
	require.NoError(t, err)

	var texts []string
	for _, m := range matches {
		texts = append(texts, m.Record.Text)
	}
	assert.Equal(t, []string{"a3", "b0", "b2", "b10"}, texts)
}
