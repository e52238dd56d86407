// Package inmemory implements the vector Index as an in-process map with
// brute-force cosine search. It is the zero-infrastructure default backend.
package inmemory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/mnemolabs/mnemo/pkg/vector"
)

// Index holds entries in memory guarded by a read-write mutex. The first
// upserted entry fixes the embedding width.
type Index struct {
	mu      sync.RWMutex
	dims    int
	entries map[string]vector.Entry
}

// NewIndex creates an empty in-memory index.
func NewIndex() *Index {
	return &Index{entries: make(map[string]vector.Entry)}
}

// Upsert inserts entries, replacing any existing entry with the same ID.
func (i *Index) Upsert(ctx context.Context, entries ...vector.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	for _, entry := range entries {
		if entry.ID == "" {
			return fmt.Errorf("upsert: entry missing id")
		}
		if len(entry.Embedding) == 0 {
			return fmt.Errorf("%w: entry %s has no embedding", vector.ErrDimension, entry.ID)
		}
		if i.dims == 0 {
			i.dims = len(entry.Embedding)
		}
		if len(entry.Embedding) != i.dims {
			return fmt.Errorf("%w: entry %s has %d dimensions, index has %d",
				vector.ErrDimension, entry.ID, len(entry.Embedding), i.dims)
		}
		i.entries[entry.ID] = cloneEntry(entry)
	}
	return nil
}

// Search returns up to k entries nearest to the embedding by cosine
// similarity, filtered and ordered by descending score.
func (i *Index) Search(ctx context.Context, embedding []float32, k int, filter vector.Filter) ([]vector.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	hits := make([]vector.Hit, 0, len(i.entries))
	for _, entry := range i.entries {
		if !filter.Matches(entry.Record) {
			continue
		}
		hits = append(hits, vector.Hit{
			Entry: cloneEntry(entry),
			Score: cosineScore(embedding, entry.Embedding),
		})
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].ID < hits[b].ID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// List returns every entry passing the filter.
func (i *Index) List(ctx context.Context, filter vector.Filter) ([]vector.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]vector.Entry, 0, len(i.entries))
	for _, entry := range i.entries {
		if filter.Matches(entry.Record) {
			out = append(out, cloneEntry(entry))
		}
	}
	return out, nil
}

// Get returns the entry with the given ID.
func (i *Index) Get(ctx context.Context, id string) (vector.Entry, error) {
	if err := ctx.Err(); err != nil {
		return vector.Entry{}, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	entry, ok := i.entries[id]
	if !ok {
		return vector.Entry{}, fmt.Errorf("%w: %s", vector.ErrNotFound, id)
	}
	return cloneEntry(entry), nil
}

// Delete removes the entries with the given IDs. Missing IDs are ignored.
func (i *Index) Delete(ctx context.Context, ids ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	for _, id := range ids {
		delete(i.entries, id)
	}
	return nil
}

// Close releases resources held by the index.
func (i *Index) Close() error {
	return nil
}

func cloneEntry(e vector.Entry) vector.Entry {
	out := e
	out.Record = e.Record.Clone()
	if e.Embedding != nil {
		out.Embedding = make([]float32, len(e.Embedding))
		copy(out.Embedding, e.Embedding)
	}
	return out
}

// cosineScore maps cosine similarity into [0, 1] where 1 is an exact match.
func cosineScore(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for idx := range a {
		dot += float64(a[idx]) * float64(b[idx])
		normA += float64(a[idx]) * float64(a[idx])
		normB += float64(b[idx]) * float64(b[idx])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (1 + cos) / 2
}

var _ vector.Index = (*Index)(nil)
