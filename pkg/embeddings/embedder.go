// Package embeddings defines the text embedding capability the episodic
// layer is built on. Provider implementations live in subpackages and are
// constructed through the embeddingutils factory.
package embeddings

import "context"

// Embedder converts text into a fixed-dimension vector. Implementations must
// be safe for concurrent use and must return vectors of exactly Dimensions()
// entries.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions reports the width of vectors this embedder produces.
	Dimensions() int

	// Close releases resources held by the embedder.
	Close() error
}
