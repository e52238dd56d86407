// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"

	"github.com/mnemolabs/mnemo/pkg/embeddings"
	"github.com/mnemolabs/mnemo/pkg/embeddings/cached"
	"github.com/mnemolabs/mnemo/pkg/embeddings/mock"
	"github.com/mnemolabs/mnemo/pkg/embeddings/ollama"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	Dimensions   int
	CacheEntries int64
}

// NewEmbedder builds the configured embedding provider, wrapped in a cache
// when CacheEntries is positive.
func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	var (
		embedder embeddings.Embedder
		err      error
	)

	switch o.ProviderType {
	case "mock":
		embedder = mock.NewEmbedder(o.Dimensions)
	case "ollama":
		embedder, err = ollama.NewEmbedder(ollama.Config{
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
	if err != nil {
		return nil, err
	}

	if o.CacheEntries > 0 {
		return cached.NewEmbedder(embedder, cached.Config{MaxEntries: o.CacheEntries})
	}
	return embedder, nil
}
