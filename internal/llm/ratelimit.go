package llm

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// RateLimitedEmbedder throttles calls to another Embedder with a token bucket.
// Each EmbedTexts call takes one token regardless of batch size.
type RateLimitedEmbedder struct {
	next    Embedder
	limiter *rate.Limiter
}

var _ Embedder = (*RateLimitedEmbedder)(nil)

// NewRateLimitedEmbedder allows requestsPerSecond sustained calls with a burst
// of the rate rounded up (at least 1).
func NewRateLimitedEmbedder(next Embedder, requestsPerSecond float64) *RateLimitedEmbedder {
	burst := int(math.Ceil(requestsPerSecond))
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedEmbedder{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Dimension returns the wrapped embedder's dimension.
func (r *RateLimitedEmbedder) Dimension() int {
	return r.next.Dimension()
}

// EmbedTexts waits for a token, then delegates. A cancelled wait is reported
// as an EmbeddingError.
func (r *RateLimitedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, &EmbeddingError{Backend: "rate-limit", Err: err}
	}
	return r.next.EmbedTexts(ctx, texts)
}
