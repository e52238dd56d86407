// Package chromem implements the vector Index over chromem-go, an embedded
// pure-Go vector database. The collection handles similarity search while a
// side map backs point lookups, listing and deletion, which chromem does not
// expose per document.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	chromemgo "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/vector"
)

// DefaultCollection names the chromem collection when none is configured.
const DefaultCollection = "memories"

// Index is an in-process vector index. Deleted IDs linger inside the chromem
// collection until restart; Search filters them out through the side map.
type Index struct {
	db         *chromemgo.DB
	collection *chromemgo.Collection
	logger     *zap.Logger

	mu      sync.RWMutex
	entries map[string]vector.Entry
}

// Config holds configuration for the chromem index.
type Config struct {
	// Collection names the chromem collection. Defaults to DefaultCollection.
	Collection string
}

// NewIndex creates an in-memory chromem-backed index.
func NewIndex(cfg Config, logger *zap.Logger) (*Index, error) {
	name := cfg.Collection
	if name == "" {
		name = DefaultCollection
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db := chromemgo.NewDB()
	collection, err := db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating collection: %v", vector.ErrConnection, err)
	}

	logger.Info("chromem index initialized", zap.String("collection", name))

	return &Index{
		db:         db,
		collection: collection,
		logger:     logger,
		entries:    make(map[string]vector.Entry),
	}, nil
}

// Upsert inserts entries, replacing any existing entry with the same ID.
func (i *Index) Upsert(ctx context.Context, entries ...vector.Entry) error {
	for _, entry := range entries {
		if entry.ID == "" {
			return fmt.Errorf("upsert: entry missing id")
		}
		if len(entry.Embedding) == 0 {
			return fmt.Errorf("%w: entry %s has no embedding", vector.ErrDimension, entry.ID)
		}

		content, err := json.Marshal(entry.Record)
		if err != nil {
			return fmt.Errorf("serializing record for entry %s: %w", entry.ID, err)
		}

		doc := chromemgo.Document{
			ID: entry.ID,
			Metadata: map[string]string{
				"domain":       entry.Record.Domain,
				"consolidated": strconv.FormatBool(entry.Record.Consolidated),
			},
			Embedding: entry.Embedding,
			Content:   string(content),
		}
		if err := i.collection.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("%w: adding document %s: %v", vector.ErrConnection, entry.ID, err)
		}

		i.mu.Lock()
		i.entries[entry.ID] = cloneEntry(entry)
		i.mu.Unlock()
	}
	return nil
}

// Search returns up to k entries nearest to the embedding, filtered and
// ordered by descending score.
func (i *Index) Search(ctx context.Context, embedding []float32, k int, filter vector.Filter) ([]vector.Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	count := i.collection.Count()
	if count == 0 {
		return nil, nil
	}

	where := map[string]string{}
	if filter.Domain != "" {
		where["domain"] = filter.Domain
	}
	if filter.Consolidated != nil {
		where["consolidated"] = strconv.FormatBool(*filter.Consolidated)
	}

	fetchK := k * 4
	if fetchK < k+16 {
		fetchK = k + 16
	}
	if fetchK > count {
		fetchK = count
	}

	// chromem rejects nResults larger than the filtered document count, so
	// shrink and retry until it fits.
	var results []chromemgo.Result
	for fetchK > 0 {
		var err error
		results, err = i.collection.QueryEmbedding(ctx, embedding, fetchK, where, nil)
		if err != nil {
			if isInsufficientDocs(err) {
				fetchK /= 2
				continue
			}
			return nil, fmt.Errorf("%w: querying collection: %v", vector.ErrConnection, err)
		}
		break
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	hits := make([]vector.Hit, 0, len(results))
	for _, res := range results {
		entry, ok := i.entries[res.ID]
		if !ok {
			continue
		}
		if !filter.Matches(entry.Record) {
			continue
		}
		hits = append(hits, vector.Hit{
			Entry: cloneEntry(entry),
			Score: (1 + float64(res.Similarity)) / 2,
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

func isInsufficientDocs(err error) bool {
	return err != nil && strings.Contains(err.Error(), "number of documents")
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

var _ vector.Index = (*Index)(nil)
