// Package episodic implements the short-term memory layer: raw experiences
// stored with their embeddings and retrieved by similarity. Records stay
// here forever; consolidation only marks them, it never removes them.
package episodic

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/embeddings"
	"github.com/mnemolabs/mnemo/pkg/memory"
	"github.com/mnemolabs/mnemo/pkg/vector"
)

const (
	// DefaultK is used when a query does not name a result count.
	DefaultK = 10

	// Search overfetches so access filtering cannot starve the requested k.
	overfetchFactor = 3
	overfetchFloor  = 20
)

// Authorizer answers whether one domain may read records of another.
// *access.Controller satisfies it.
type Authorizer interface {
	AuthorizeRead(ctx context.Context, requesterDomain, recordDomain string) (bool, error)
}

// Config wires the layer's collaborators.
type Config struct {
	Index      vector.Index
	Embedder   embeddings.Embedder
	Authorizer Authorizer
	Decay      memory.DecayPolicy
	Logger     *zap.Logger
}

// Query describes a similarity search over episodic memory.
type Query struct {
	Text            string
	RequesterDomain string
	Domain          string
	K               int
}

// Result is one query hit.
type Result struct {
	Record     memory.Record
	Similarity float64
}

// Layer owns episodic records.
type Layer struct {
	index    vector.Index
	embedder embeddings.Embedder
	auth     Authorizer
	decay    memory.DecayPolicy
	logger   *zap.Logger
}

// NewLayer creates the episodic layer.
func NewLayer(c Config) (*Layer, error) {
	if c.Index == nil {
		return nil, fmt.Errorf("episodic layer requires a vector index")
	}
	if c.Embedder == nil {
		return nil, fmt.Errorf("episodic layer requires an embedder")
	}
	if c.Authorizer == nil {
		return nil, fmt.Errorf("episodic layer requires an authorizer")
	}
	if c.Decay == (memory.DecayPolicy{}) {
		c.Decay = memory.DefaultDecayPolicy()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	return &Layer{
		index:    c.Index,
		embedder: c.Embedder,
		auth:     c.Authorizer,
		decay:    c.Decay,
		logger:   c.Logger,
	}, nil
}

// Store validates the record, embeds its content and writes it to the index.
// Returns the record ID.
func (l *Layer) Store(ctx context.Context, rec memory.Record) (string, error) {
	stored := rec.Clone()
	stored.Kind = memory.KindEpisodic
	if err := stored.Validate(); err != nil {
		return "", err
	}

	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.Context[memory.ContextDomain] = stored.Domain

	embedding, err := l.embedder.Embed(ctx, stored.Content)
	if err != nil {
		return "", fmt.Errorf("%w: embed content: %v", memory.ErrStorageUnavailable, err)
	}

	entry := vector.Entry{ID: stored.ID, Embedding: embedding, Record: stored}
	if err := l.index.Upsert(ctx, entry); err != nil {
		return "", fmt.Errorf("%w: upsert record: %v", memory.ErrStorageUnavailable, err)
	}

	l.logger.Debug("stored episodic record",
		zap.String("id", stored.ID),
		zap.String("domain", stored.Domain),
		zap.Float64("importance", stored.Importance))

	return stored.ID, nil
}

// Query embeds the text, searches the index and filters the hits through the
// authorizer. Records the requester may not read are silently excluded.
func (l *Layer) Query(ctx context.Context, q Query) ([]Result, error) {
	if q.Text == "" {
		return nil, &memory.ValidationError{Field: "text", Reason: "must not be empty"}
	}
	if q.RequesterDomain == "" {
		return nil, &memory.ValidationError{Field: "requester_domain", Reason: "must not be empty"}
	}
	if q.K <= 0 {
		q.K = DefaultK
	}

	embedding, err := l.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", memory.ErrStorageUnavailable, err)
	}

	fetchK := q.K * overfetchFactor
	if fetchK < overfetchFloor {
		fetchK = overfetchFloor
	}

	hits, err := l.index.Search(ctx, embedding, fetchK, vector.Filter{Domain: q.Domain})
	if err != nil {
		return nil, fmt.Errorf("%w: search index: %v", memory.ErrStorageUnavailable, err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		authorized, err := l.auth.AuthorizeRead(ctx, q.RequesterDomain, hit.Record.Domain)
		if err != nil {
			return nil, fmt.Errorf("%w: authorize read: %v", memory.ErrStorageUnavailable, err)
		}
		if !authorized {
			continue
		}
		results = append(results, Result{Record: hit.Record, Similarity: hit.Score})
	}

	sort.Slice(results, func(a, b int) bool {
		if results[a].Similarity != results[b].Similarity {
			return results[a].Similarity > results[b].Similarity
		}
		if !results[a].Record.CreatedAt.Equal(results[b].Record.CreatedAt) {
			return results[a].Record.CreatedAt.After(results[b].Record.CreatedAt)
		}
		return results[a].Record.ID < results[b].Record.ID
	})

	if len(results) > q.K {
		results = results[:q.K]
	}
	return results, nil
}

// MarkConsolidated flips the consolidation flag exactly once. Calling it
// again is a no-op; the flag never goes back to false.
func (l *Layer) MarkConsolidated(ctx context.Context, id string) error {
	entry, err := l.index.Get(ctx, id)
	if errors.Is(err, vector.ErrNotFound) {
		return fmt.Errorf("mark consolidated: %w", err)
	}
	if err != nil {
		return fmt.Errorf("%w: load record: %v", memory.ErrStorageUnavailable, err)
	}

	if entry.Record.Consolidated {
		return nil
	}

	now := time.Now().UTC()
	entry.Record.Consolidated = true
	entry.Record.ConsolidatedAt = &now

	if err := l.index.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("%w: update record: %v", memory.ErrStorageUnavailable, err)
	}
	return nil
}

// ListUnconsolidated returns consolidation candidates for a domain.
// minImportance applies to EFFECTIVE importance after decay; maxAge of zero
// is unbounded.
func (l *Layer) ListUnconsolidated(ctx context.Context, domain string, minImportance float64, maxAge time.Duration) ([]memory.Record, error) {
	unconsolidated := false
	entries, err := l.index.List(ctx, vector.Filter{Domain: domain, Consolidated: &unconsolidated})
	if err != nil {
		return nil, fmt.Errorf("%w: list records: %v", memory.ErrStorageUnavailable, err)
	}

	now := time.Now().UTC()
	records := make([]memory.Record, 0, len(entries))
	for _, entry := range entries {
		age := entry.Record.Age(now)
		if maxAge > 0 && age > maxAge {
			continue
		}
		if l.decay.Effective(entry.Record.Importance, age) < minImportance {
			continue
		}
		records = append(records, entry.Record)
	}

	sort.Slice(records, func(a, b int) bool {
		if !records[a].CreatedAt.Equal(records[b].CreatedAt) {
			return records[a].CreatedAt.Before(records[b].CreatedAt)
		}
		return records[a].ID < records[b].ID
	})
	return records, nil
}

// Domains returns the distinct domain tags across stored records, sorted.
func (l *Layer) Domains(ctx context.Context) ([]string, error) {
	entries, err := l.index.List(ctx, vector.Filter{})
	if err != nil {
		return nil, fmt.Errorf("%w: list records: %v", memory.ErrStorageUnavailable, err)
	}

	seen := make(map[string]bool, len(entries))
	domains := make([]string, 0, len(entries))
	for _, entry := range entries {
		if seen[entry.Record.Domain] {
			continue
		}
		seen[entry.Record.Domain] = true
		domains = append(domains, entry.Record.Domain)
	}
	sort.Strings(domains)
	return domains, nil
}

// Close releases the embedder and the underlying index.
func (l *Layer) Close() error {
	return errors.Join(l.embedder.Close(), l.index.Close())
}
