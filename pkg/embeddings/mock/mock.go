// Package mock implements a deterministic, dependency-free Embedder.
// Identical text always maps to the identical unit vector, so self-similarity
// is exactly 1.0. That makes it suitable both for tests and for fully local
// deployments where retrieval only needs to be stable, not semantic.
package mock

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/mnemolabs/mnemo/pkg/embeddings"
)

// DefaultDimensions is the vector width used when none is configured.
const DefaultDimensions = 384

// Embedder derives a pseudo-random unit vector from the FNV-64a hash of the
// input text.
type Embedder struct {
	dims int
}

// NewEmbedder creates a deterministic embedder producing vectors of the given
// width. Non-positive widths fall back to DefaultDimensions.
func NewEmbedder(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dims: dims}
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(text))
	state := hasher.Sum64()

	vec := make([]float32, e.dims)
	var norm float64
	for i := range vec {
		state = state*6364136223846793005 + 1442695040888963407
		v := float64(state>>40)/float64(1<<23) - 1
		vec[i] = float32(v)
		norm += v * v
	}

	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

// Dimensions reports the width of vectors this embedder produces.
func (e *Embedder) Dimensions() int {
	return e.dims
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
