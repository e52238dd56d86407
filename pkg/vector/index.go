// Package vector defines the similarity index the episodic layer stores
// records in. Implementations live in subpackages (inmemory, sqlitevec,
// chromem) and are constructed through the vectorutils factory.
package vector

import (
	"context"

	"github.com/mnemolabs/mnemo/pkg/memory"
)

// Entry pairs an episodic record with its embedding inside the index.
type Entry struct {
	ID        string
	Embedding []float32
	Record    memory.Record
}

// Hit is a search result: an entry plus its similarity to the query vector,
// normalized to (0, 1] where 1 is closest.
type Hit struct {
	Entry
	Score float64
}

// Filter narrows Search and List to matching entries. Zero values match
// everything.
type Filter struct {
	// Domain restricts to records carrying this exact domain tag.
	Domain string

	// Consolidated restricts by consolidation state when non-nil.
	Consolidated *bool
}

// Matches reports whether a record passes the filter.
func (f Filter) Matches(rec memory.Record) bool {
	if f.Domain != "" && rec.Domain != f.Domain {
		return false
	}
	if f.Consolidated != nil && rec.Consolidated != *f.Consolidated {
		return false
	}
	return true
}

// Index stores embedded episodic records and retrieves them by vector
// similarity. Implementations must be safe for concurrent use.
type Index interface {
	// Upsert inserts entries, replacing any existing entry with the same ID.
	Upsert(ctx context.Context, entries ...Entry) error

	// Search returns up to k entries nearest to the embedding, filtered and
	// ordered by descending score.
	Search(ctx context.Context, embedding []float32, k int, filter Filter) ([]Hit, error)

	// List returns every entry passing the filter, in no particular order.
	List(ctx context.Context, filter Filter) ([]Entry, error)

	// Get returns the entry with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (Entry, error)

	// Delete removes the entries with the given IDs. Missing IDs are ignored.
	Delete(ctx context.Context, ids ...string) error

	// Close releases resources held by the index.
	Close() error
}
