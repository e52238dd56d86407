package testutils

import (
	"context"
	"fmt"
)

// MockEmbedder is a test embedder that returns predictable embeddings.
type MockEmbedder struct {
	// Embeddings maps input text to a fixed vector.
	Embeddings map[string][]float32

	// FailOn causes Embed to return an error when the input text matches.
	FailOn string

	dims int
}

func NewMockEmbedder(dims int) *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
		dims:       dims,
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	// Return a default embedding for any text
	emb := make([]float32, m.dims)
	for i := range emb {
		emb[i] = 0.1
	}
	return emb, nil
}

func (m *MockEmbedder) Dimensions() int {
	return m.dims
}

func (m *MockEmbedder) Close() error {
	return nil
}
