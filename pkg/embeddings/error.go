package embeddings

import "errors"

var (
	// ErrEmbedding is returned when a provider fails to produce an embedding.
	ErrEmbedding = errors.New("embedding error")

	// ErrConnection is returned when a provider cannot be reached.
	ErrConnection = errors.New("embedding provider connection error")
)
