package llm

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestVectorCodec(t *testing.T) {
	vec := []float32{0.25, -1.5, 3, 0}
	got, ok := decodeVector(encodeVector(vec), len(vec))
	if !ok {
		t.Fatal("decodeVector() rejected its own encoding")
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("decodeVector()[%d] = %v, want %v", i, got[i], vec[i])
		}
	}

	if _, ok := decodeVector("abc", 1); ok {
		t.Error("decodeVector() accepted a truncated value")
	}
}

func TestCachedEmbedder_KeysAreNamespaced(t *testing.T) {
	inner := NewHashEmbedder(8)
	a := NewCachedEmbedder(inner, nil, "model-a", 0)
	b := NewCachedEmbedder(inner, nil, "model-b", 0)

	if a.key("hello") == b.key("hello") {
		t.Error("keys for different models should differ")
	}
	if a.key("hello") == a.key("world") {
		t.Error("keys for different texts should differ")
	}
	if a.ttl != DefaultCacheTTL {
		t.Errorf("ttl = %v, want %v", a.ttl, DefaultCacheTTL)
	}
}

func TestCachedEmbedder_FallsThroughWhenRedisIsDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer rdb.Close()

	inner := NewHashEmbedder(16)
	cached := NewCachedEmbedder(inner, rdb, "hash", 0)

	got, err := cached.EmbedTexts(context.Background(), []string{"grass is green", "sky"})
	if err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}
	want, _ := inner.EmbedTexts(context.Background(), []string{"grass is green", "sky"})
	for i := range want {
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Fatalf("vector %d differs at %d", i, j)
			}
		}
	}
	if cached.Dimension() != 16 {
		t.Errorf("Dimension() = %d, want 16", cached.Dimension())
	}
}

// recordingEmbedder wraps an Embedder and remembers every batch it receives.
type recordingEmbedder struct {
	Embedder
	mu      sync.Mutex
	batches [][]string
}

func (r *recordingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	r.mu.Lock()
	r.batches = append(r.batches, slices.Clone(texts))
	r.mu.Unlock()
	return r.Embedder.EmbedTexts(ctx, texts)
}

// shortEmbedder drops the last vector of every batch.
type shortEmbedder struct {
	Embedder
}

func (s shortEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := s.Embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	return vectors[:len(vectors)-1], nil
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestCachedEmbedder_MixedHitsAndMisses(t *testing.T) {
	ctx := context.Background()
	hash := NewHashEmbedder(32)
	inner := &recordingEmbedder{Embedder: hash}
	cached := NewCachedEmbedder(inner, newTestRedis(t), "hash", 0)

	if _, err := cached.EmbedTexts(ctx, []string{"grass is green", "sky is blue"}); err != nil {
		t.Fatalf("warm EmbedTexts() error = %v", err)
	}

	texts := []string{"water is wet", "grass is green", "fire is hot", "sky is blue"}
	got, err := cached.EmbedTexts(ctx, texts)
	if err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}

	if len(inner.batches) != 2 {
		t.Fatalf("wrapped embedder called %d times, want 2", len(inner.batches))
	}
	if want := []string{"water is wet", "fire is hot"}; !slices.Equal(inner.batches[1], want) {
		t.Errorf("misses sent = %v, want %v", inner.batches[1], want)
	}

	want, _ := hash.EmbedTexts(ctx, texts)
	if len(got) != len(want) {
		t.Fatalf("got %d vectors, want %d", len(got), len(want))
	}
	for i := range want {
		if !slices.Equal(got[i], want[i]) {
			t.Errorf("vector %d (%q) out of order or wrong", i, texts[i])
		}
	}

	// Everything is cached now.
	if _, err := cached.EmbedTexts(ctx, texts); err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}
	if len(inner.batches) != 2 {
		t.Errorf("fully cached batch reached the wrapped embedder")
	}
}

func TestCachedEmbedder_IgnoresCorruptEntries(t *testing.T) {
	ctx := context.Background()
	rdb := newTestRedis(t)
	inner := &recordingEmbedder{Embedder: NewHashEmbedder(8)}
	cached := NewCachedEmbedder(inner, rdb, "hash", 0)

	if err := rdb.Set(ctx, cached.key("sky"), "short", 0).Err(); err != nil {
		t.Fatal(err)
	}
	got, err := cached.EmbedTexts(ctx, []string{"sky"})
	if err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}
	if len(got) != 1 || len(got[0]) != 8 {
		t.Fatalf("EmbedTexts() = %v", got)
	}
	if len(inner.batches) != 1 {
		t.Errorf("corrupt entry should be re-embedded")
	}
}

func TestCachedEmbedder_RejectsShortBackendResponse(t *testing.T) {
	cached := NewCachedEmbedder(shortEmbedder{NewHashEmbedder(8)}, newTestRedis(t), "hash", 0)

	_, err := cached.EmbedTexts(context.Background(), []string{"sky", "grass"})
	var embErr *EmbeddingError
	if !errors.As(err, &embErr) {
		t.Fatalf("EmbedTexts() error = %v, want *EmbeddingError", err)
	}
}
