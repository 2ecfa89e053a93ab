package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/go-redis/redis/v8"

	"docrag/internal/contextutil"
)

// DefaultCacheTTL bounds how long cached vectors are kept.
const DefaultCacheTTL = 7 * 24 * time.Hour

// CachedEmbedder memoises another Embedder's vectors in Redis, keyed by model
// and text hash. Cache failures are logged and fall through to the wrapped embedder.
type CachedEmbedder struct {
	next   Embedder
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps next with a Redis cache. model namespaces the keys so
// switching models never returns stale vectors.
func NewCachedEmbedder(next Embedder, rdb *redis.Client, model string, ttl time.Duration) *CachedEmbedder {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedEmbedder{
		next:   next,
		rdb:    rdb,
		prefix: fmt.Sprintf("docrag:emb:%s:%d:", model, next.Dimension()),
		ttl:    ttl,
	}
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// Dimension returns the wrapped embedder's dimension.
func (c *CachedEmbedder) Dimension() int {
	return c.next.Dimension()
}

// EmbedTexts serves hits from Redis and embeds the misses in one batch.
func (c *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(texts) == 0 {
		return c.next.EmbedTexts(ctx, texts)
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.key(text)
	}

	out := make([][]float32, len(texts))
	cached, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		logger.WarnContext(ctx, "embedding cache read failed", "error", err)
		cached = nil
	}
	for i, v := range cached {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if vec, ok := decodeVector(s, c.Dimension()); ok {
			out[i] = vec
		}
	}

	var missIdx []int
	var missTexts []string
	for i, vec := range out {
		if vec == nil {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, texts[i])
		}
	}
	if len(missTexts) == 0 {
		logger.DebugContext(ctx, "embedding cache hit", "count", len(texts))
		return out, nil
	}

	vectors, err := c.next.EmbedTexts(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if err := checkVectors(vectors, len(missTexts), c.Dimension()); err != nil {
		return nil, &EmbeddingError{Backend: "cache", Err: err}
	}

	pipe := c.rdb.Pipeline()
	for j, i := range missIdx {
		out[i] = vectors[j]
		pipe.Set(ctx, keys[i], encodeVector(vectors[j]), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.WarnContext(ctx, "embedding cache write failed", "error", err)
	}

	logger.DebugContext(ctx, "embedding cache", "hits", len(texts)-len(missTexts), "misses", len(missTexts))
	return out, nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(sum[:])
}

func encodeVector(vec []float32) string {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return string(buf)
}

func decodeVector(s string, dim int) ([]float32, bool) {
	if len(s) != 4*dim {
		return nil, false
	}
	buf := []byte(s)
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, true
}
