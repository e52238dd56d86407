// Package cached wraps any Embedder with an in-process ristretto cache so
// repeated text is embedded once. Useful in front of network providers where
// the same content (re-queries, consolidation re-runs) would otherwise round
// trip again.
package cached

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/mnemolabs/mnemo/pkg/embeddings"
)

// DefaultMaxEntries bounds the cache when no size is configured.
const DefaultMaxEntries = 4096

// Embedder decorates an inner embedder with a lookup cache keyed by the
// input text.
type Embedder struct {
	inner embeddings.Embedder
	cache *ristretto.Cache
}

// Config holds configuration for the caching decorator.
type Config struct {
	// MaxEntries bounds how many embeddings the cache retains. Defaults to
	// DefaultMaxEntries if zero.
	MaxEntries int64
}

// NewEmbedder wraps inner with a cache.
func NewEmbedder(inner embeddings.Embedder, cfg Config) (*Embedder, error) {
	if inner == nil {
		return nil, fmt.Errorf("%w: nil inner embedder", embeddings.ErrEmbedding)
	}

	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating cache: %v", embeddings.ErrEmbedding, err)
	}

	return &Embedder{inner: inner, cache: cache}, nil
}

// Embed returns the cached vector for text when present, otherwise embeds
// through the inner provider and caches the result.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if hit, ok := e.cache.Get(text); ok {
		if vec, ok := hit.([]float32); ok {
			out := make([]float32, len(vec))
			copy(out, vec)
			return out, nil
		}
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	stored := make([]float32, len(vec))
	copy(stored, vec)
	e.cache.Set(text, stored, 1)
	e.cache.Wait()

	return vec, nil
}

// Dimensions reports the width of vectors the inner embedder produces.
func (e *Embedder) Dimensions() int {
	return e.inner.Dimensions()
}

// Close releases the cache and the inner embedder.
func (e *Embedder) Close() error {
	e.cache.Close()
	return e.inner.Close()
}

var _ embeddings.Embedder = (*Embedder)(nil)
