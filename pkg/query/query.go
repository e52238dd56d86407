// Package query routes a memory lookup across both layers: similarity
// search over episodic records and structural match over semantic concepts,
// merged into one ranked list.
package query

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/analysis"
	"github.com/mnemolabs/mnemo/pkg/episodic"
	"github.com/mnemolabs/mnemo/pkg/memory"
	"github.com/mnemolabs/mnemo/pkg/semantic"
)

const (
	// DefaultK is used when a query does not name a result count.
	DefaultK = 10

	// DefaultSemanticWeight and DefaultEpisodicWeight blend the two layers'
	// normalized scores.
	DefaultSemanticWeight = 0.6
	DefaultEpisodicWeight = 0.4

	// maxSemanticTerms bounds how many analyzer terms turn into graph
	// lookups for one query.
	maxSemanticTerms = 8
)

// Layer tags which memory layer produced a result.
type Layer string

const (
	LayerEpisodic Layer = "episodic"
	LayerSemantic Layer = "semantic"
)

// Result is one ranked hit. Exactly one of Record and Concept is set,
// matching the Layer tag. Similarity carries the episodic native score,
// Confidence the semantic one.
type Result struct {
	Layer      Layer
	Record     *memory.Record
	Concept    *memory.Concept
	Score      float64
	Similarity float64
	Confidence float64
}

// Authorizer answers whether one domain may read another's memory.
// *access.Controller satisfies it.
type Authorizer interface {
	AuthorizeRead(ctx context.Context, requesterDomain, recordDomain string) (bool, error)
}

// Config wires the router's collaborators.
type Config struct {
	Episodic   *episodic.Layer
	Semantic   *semantic.Layer
	Analyzer   analysis.Analyzer
	Authorizer Authorizer

	// SemanticWeight and EpisodicWeight default to 0.6/0.4 when both zero.
	SemanticWeight float64
	EpisodicWeight float64

	Logger *zap.Logger
}

// Router fans a textual query out to both memory layers.
type Router struct {
	episodic       *episodic.Layer
	semantic       *semantic.Layer
	analyzer       analysis.Analyzer
	auth           Authorizer
	semanticWeight float64
	episodicWeight float64
	logger         *zap.Logger
}

// NewRouter creates the query router.
func NewRouter(c Config) (*Router, error) {
	if c.Episodic == nil {
		return nil, fmt.Errorf("query router requires an episodic layer")
	}
	if c.Semantic == nil {
		return nil, fmt.Errorf("query router requires a semantic layer")
	}
	if c.Analyzer == nil {
		return nil, fmt.Errorf("query router requires an analyzer")
	}
	if c.Authorizer == nil {
		return nil, fmt.Errorf("query router requires an authorizer")
	}
	if c.SemanticWeight < 0 || c.EpisodicWeight < 0 {
		return nil, fmt.Errorf("query weights must not be negative")
	}
	if c.SemanticWeight == 0 && c.EpisodicWeight == 0 {
		c.SemanticWeight = DefaultSemanticWeight
		c.EpisodicWeight = DefaultEpisodicWeight
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	return &Router{
		episodic:       c.Episodic,
		semantic:       c.Semantic,
		analyzer:       c.Analyzer,
		auth:           c.Authorizer,
		semanticWeight: c.SemanticWeight,
		episodicWeight: c.EpisodicWeight,
		logger:         c.Logger,
	}, nil
}

// Query runs both layers concurrently and merges their hits into one list of
// at most k results, best first. Results the requester may not read are
// silently excluded.
func (r *Router) Query(ctx context.Context, text, requesterDomain string, k int) ([]Result, error) {
	if text == "" {
		return nil, &memory.ValidationError{Field: "text", Reason: "must not be empty"}
	}
	if requesterDomain == "" {
		return nil, &memory.ValidationError{Field: "requester_domain", Reason: "must not be empty"}
	}
	if k <= 0 {
		k = DefaultK
	}

	terms := r.semanticTerms(ctx, text)

	var (
		wg          sync.WaitGroup
		episodicRes []episodic.Result
		episodicErr error
		concepts    []memory.Concept
		semanticErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		episodicRes, episodicErr = r.episodic.Query(ctx, episodic.Query{
			Text:            text,
			RequesterDomain: requesterDomain,
			K:               k,
		})
	}()
	go func() {
		defer wg.Done()
		concepts, semanticErr = r.lookupConcepts(ctx, terms)
	}()
	wg.Wait()

	if episodicErr != nil {
		return nil, fmt.Errorf("episodic query: %w", episodicErr)
	}
	if semanticErr != nil {
		return nil, fmt.Errorf("semantic query: %w", semanticErr)
	}

	concepts, err := r.filterConcepts(ctx, requesterDomain, concepts)
	if err != nil {
		return nil, err
	}

	results := merge(episodicRes, concepts, r.semanticWeight, r.episodicWeight)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// semanticTerms derives graph lookup terms from the analyzer's candidates.
// Analyzer failure degrades the query to episodic-only rather than failing
// it.
func (r *Router) semanticTerms(ctx context.Context, text string) []string {
	candidates, err := r.analyzer.ExtractCandidates(ctx, text)
	if err != nil {
		r.logger.Warn("analyzer unavailable for query, searching episodic only",
			zap.Error(err))
		return nil
	}

	seen := make(map[string]struct{})
	terms := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		for _, field := range []string{"name", "from", "to", "subject"} {
			value := cand.Fields[field]
			if value == "" {
				continue
			}
			if _, ok := seen[value]; ok {
				continue
			}
			seen[value] = struct{}{}
			terms = append(terms, value)
			if len(terms) == maxSemanticTerms {
				return terms
			}
		}
	}
	return terms
}

// lookupConcepts unions the concepts matching each term by exact name.
func (r *Router) lookupConcepts(ctx context.Context, terms []string) ([]memory.Concept, error) {
	byID := make(map[string]memory.Concept)
	order := make([]string, 0, len(terms))
	for _, term := range terms {
		result, err := r.semantic.Query(ctx, semantic.Query{Name: term, Depth: 1})
		if err != nil {
			return nil, err
		}
		for _, concept := range result.Concepts {
			if _, ok := byID[concept.ID]; ok {
				continue
			}
			byID[concept.ID] = concept
			order = append(order, concept.ID)
		}
	}

	concepts := make([]memory.Concept, 0, len(byID))
	for _, id := range order {
		concepts = append(concepts, byID[id])
	}
	return concepts, nil
}

func (r *Router) filterConcepts(ctx context.Context, requesterDomain string, concepts []memory.Concept) ([]memory.Concept, error) {
	readable := concepts[:0]
	for _, concept := range concepts {
		authorized, err := r.auth.AuthorizeRead(ctx, requesterDomain, concept.Domain)
		if err != nil {
			return nil, fmt.Errorf("%w: authorize read: %v", memory.ErrStorageUnavailable, err)
		}
		if !authorized {
			continue
		}
		readable = append(readable, concept)
	}
	return readable, nil
}

// merge max-normalizes each layer's native score and blends with the layer
// weights. Every entry belongs to one layer, so its score is that layer's
// weighted normalized value.
func merge(episodicRes []episodic.Result, concepts []memory.Concept, semanticWeight, episodicWeight float64) []Result {
	var maxSimilarity float64
	for _, hit := range episodicRes {
		if hit.Similarity > maxSimilarity {
			maxSimilarity = hit.Similarity
		}
	}
	var maxConfidence float64
	for _, concept := range concepts {
		if concept.Confidence > maxConfidence {
			maxConfidence = concept.Confidence
		}
	}

	results := make([]Result, 0, len(episodicRes)+len(concepts))
	for _, concept := range concepts {
		normalized := 0.0
		if maxConfidence > 0 {
			normalized = concept.Confidence / maxConfidence
		}
		c := concept.Clone()
		results = append(results, Result{
			Layer:      LayerSemantic,
			Concept:    &c,
			Score:      semanticWeight * normalized,
			Confidence: concept.Confidence,
		})
	}
	for _, hit := range episodicRes {
		normalized := 0.0
		if maxSimilarity > 0 {
			normalized = hit.Similarity / maxSimilarity
		}
		rec := hit.Record.Clone()
		results = append(results, Result{
			Layer:      LayerEpisodic,
			Record:     &rec,
			Score:      episodicWeight * normalized,
			Similarity: hit.Similarity,
		})
	}

	sort.Slice(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		if results[a].Layer != results[b].Layer {
			return results[a].Layer == LayerSemantic
		}
		return resultID(results[a]) < resultID(results[b])
	})
	return results
}

func resultID(r Result) string {
	if r.Concept != nil {
		return r.Concept.ID
	}
	if r.Record != nil {
		return r.Record.ID
	}
	return ""
}
