// Package semantic implements the long-term memory layer: consolidated
// concepts and relationships in a graph store. All writes go through
// merge-by-key semantics, so re-consolidating the same knowledge can only
// refine it, never duplicate it.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/graph"
	"github.com/mnemolabs/mnemo/pkg/memory"
)

// ConceptLabel is the node label every concept is stored under.
const ConceptLabel = "Concept"

// Reserved node property names; user properties are prefixed to avoid
// collisions.
const (
	propName       = "name"
	propType       = "type"
	propDomain     = "domain"
	propConfidence = "confidence"
	propFromKey    = "from_key"
	propToKey      = "to_key"
	userPropPrefix = "prop_"
)

const lockStripes = 64

// Config wires the layer's collaborators.
type Config struct {
	Store  graph.Store
	Logger *zap.Logger
}

// Query describes a structural match over the semantic graph.
type Query struct {
	Type       memory.ConceptType
	Domain     string
	Name       string
	Properties map[string]string
	Depth      int
}

// Result carries the matched subgraph.
type Result struct {
	Concepts      []memory.Concept
	Relationships []memory.Relationship
}

// Layer owns concepts and relationships.
type Layer struct {
	store  graph.Store
	logger *zap.Logger
	locks  [lockStripes]sync.Mutex
}

// NewLayer creates the semantic layer.
func NewLayer(c Config) (*Layer, error) {
	if c.Store == nil {
		return nil, fmt.Errorf("semantic layer requires a graph store")
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return &Layer{store: c.Store, logger: c.Logger}, nil
}

// UpsertConcept merges the concept into the graph by its (type, domain,
// name) key. Confidence only ever rises; conflicting properties resolve to
// the higher-confidence source, with ties keeping the existing value.
func (l *Layer) UpsertConcept(ctx context.Context, c memory.Concept) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	key := c.Key()
	lock := l.stripe(key)
	lock.Lock()
	defer lock.Unlock()

	merged := c.Clone()

	existing, err := l.store.GetNode(ctx, ConceptLabel, key)
	switch {
	case errors.Is(err, graph.ErrNotFound):
		// First sighting.
	case err != nil:
		return "", fmt.Errorf("%w: load concept: %v", memory.ErrStorageUnavailable, err)
	default:
		prior := conceptFromNode(existing)
		merged.Properties = mergeProperties(prior.Properties, prior.Confidence, c.Properties, c.Confidence)
		if prior.Confidence > merged.Confidence {
			merged.Confidence = prior.Confidence
		}
	}

	id, err := l.store.UpsertNode(ctx, nodeFromConcept(key, merged))
	if err != nil {
		return "", fmt.Errorf("%w: upsert concept: %v", memory.ErrStorageUnavailable, err)
	}

	l.logger.Debug("upserted concept",
		zap.String("key", key),
		zap.Float64("confidence", merged.Confidence))

	return id, nil
}

// UpsertRelationship merges the relationship by its (from, to, type) key.
// FromID and ToID are concept keys; both endpoints must already exist.
// Relation types are normalized to snake_case before storage.
func (l *Layer) UpsertRelationship(ctx context.Context, r memory.Relationship) (string, error) {
	r.Type = normalizeRelationType(r.Type)
	if err := r.Validate(); err != nil {
		return "", err
	}

	from, err := l.store.GetNode(ctx, ConceptLabel, r.FromID)
	if errors.Is(err, graph.ErrNotFound) {
		return "", &memory.ValidationError{Field: "from_id", Reason: fmt.Sprintf("unknown concept %q", r.FromID)}
	}
	if err != nil {
		return "", fmt.Errorf("%w: load relationship source: %v", memory.ErrStorageUnavailable, err)
	}
	to, err := l.store.GetNode(ctx, ConceptLabel, r.ToID)
	if errors.Is(err, graph.ErrNotFound) {
		return "", &memory.ValidationError{Field: "to_id", Reason: fmt.Sprintf("unknown concept %q", r.ToID)}
	}
	if err != nil {
		return "", fmt.Errorf("%w: load relationship target: %v", memory.ErrStorageUnavailable, err)
	}

	key := r.Key()
	lock := l.stripe(key)
	lock.Lock()
	defer lock.Unlock()

	merged := r.Clone()

	existing, err := l.store.GetEdge(ctx, from.ID, to.ID, r.Type)
	switch {
	case errors.Is(err, graph.ErrNotFound):
		// First sighting.
	case err != nil:
		return "", fmt.Errorf("%w: load relationship: %v", memory.ErrStorageUnavailable, err)
	default:
		prior := relationshipFromEdge(existing)
		merged.Properties = mergeProperties(prior.Properties, prior.Confidence, r.Properties, r.Confidence)
		if prior.Confidence > merged.Confidence {
			merged.Confidence = prior.Confidence
		}
	}

	id, err := l.store.UpsertEdge(ctx, edgeFromRelationship(from.ID, to.ID, merged))
	if err != nil {
		return "", fmt.Errorf("%w: upsert relationship: %v", memory.ErrStorageUnavailable, err)
	}

	l.logger.Debug("upserted relationship",
		zap.String("key", key),
		zap.Float64("confidence", merged.Confidence))

	return id, nil
}

// Query runs a structural match with bounded traversal. Depth defaults to
// one hop.
func (l *Layer) Query(ctx context.Context, q Query) (Result, error) {
	if q.Type != "" && !q.Type.IsValid() {
		return Result{}, &memory.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown concept type %q", q.Type)}
	}
	if q.Depth <= 0 {
		q.Depth = 1
	}

	match := graph.Match{
		Label:      ConceptLabel,
		Domain:     q.Domain,
		Name:       q.Name,
		Depth:      q.Depth,
		Properties: map[string]any{},
	}
	if q.Type != "" {
		match.Properties[propType] = string(q.Type)
	}
	for k, v := range q.Properties {
		match.Properties[userPropPrefix+k] = v
	}

	found, err := l.store.Match(ctx, match)
	if err != nil {
		return Result{}, fmt.Errorf("%w: match graph: %v", memory.ErrStorageUnavailable, err)
	}

	result := Result{
		Concepts:      make([]memory.Concept, 0, len(found.Nodes)),
		Relationships: make([]memory.Relationship, 0, len(found.Edges)),
	}
	for _, node := range found.Nodes {
		result.Concepts = append(result.Concepts, conceptFromNode(node))
	}
	for _, edge := range found.Edges {
		result.Relationships = append(result.Relationships, relationshipFromEdge(edge))
	}
	return result, nil
}

// Domains returns the distinct domain tags present in the graph.
func (l *Layer) Domains(ctx context.Context) ([]string, error) {
	domains, err := l.store.Domains(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list domains: %v", memory.ErrStorageUnavailable, err)
	}
	return domains, nil
}

// Close releases the underlying store.
func (l *Layer) Close() error {
	return l.store.Close()
}

func (l *Layer) stripe(key string) *sync.Mutex {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(key))
	return &l.locks[hasher.Sum32()%lockStripes]
}

// mergeProperties keeps existing values unless the candidate source carries
// strictly higher confidence.
func mergeProperties(existing map[string]string, existingConfidence float64, candidate map[string]string, candidateConfidence float64) map[string]string {
	merged := make(map[string]string, len(existing)+len(candidate))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range candidate {
		current, ok := merged[k]
		if !ok || current == v || candidateConfidence > existingConfidence {
			merged[k] = v
		}
	}
	return merged
}

func nodeFromConcept(key string, c memory.Concept) graph.Node {
	properties := map[string]any{
		propName:       c.Name,
		propType:       string(c.Type),
		propDomain:     c.Domain,
		propConfidence: c.Confidence,
	}
	for k, v := range c.Properties {
		properties[userPropPrefix+k] = v
	}
	return graph.Node{Label: ConceptLabel, Key: key, Properties: properties}
}

func conceptFromNode(node graph.Node) memory.Concept {
	c := memory.Concept{
		ID:         node.ID,
		Properties: map[string]string{},
	}
	for k, v := range node.Properties {
		switch k {
		case propName:
			c.Name, _ = v.(string)
		case propType:
			if s, ok := v.(string); ok {
				c.Type = memory.ConceptType(s)
			}
		case propDomain:
			c.Domain, _ = v.(string)
		case propConfidence:
			c.Confidence, _ = v.(float64)
		default:
			if rest, ok := strings.CutPrefix(k, userPropPrefix); ok {
				if s, ok := v.(string); ok {
					c.Properties[rest] = s
				}
			}
		}
	}
	return c
}

func edgeFromRelationship(fromNodeID, toNodeID string, r memory.Relationship) graph.Edge {
	properties := map[string]any{
		propDomain:     r.Domain,
		propConfidence: r.Confidence,
		propFromKey:    r.FromID,
		propToKey:      r.ToID,
	}
	for k, v := range r.Properties {
		properties[userPropPrefix+k] = v
	}
	return graph.Edge{FromID: fromNodeID, ToID: toNodeID, Type: r.Type, Properties: properties}
}

func relationshipFromEdge(edge graph.Edge) memory.Relationship {
	r := memory.Relationship{
		ID:         edge.ID,
		Type:       edge.Type,
		Properties: map[string]string{},
	}
	for k, v := range edge.Properties {
		switch k {
		case propDomain:
			r.Domain, _ = v.(string)
		case propConfidence:
			r.Confidence, _ = v.(float64)
		case propFromKey:
			r.FromID, _ = v.(string)
		case propToKey:
			r.ToID, _ = v.(string)
		default:
			if rest, ok := strings.CutPrefix(k, userPropPrefix); ok {
				if s, ok := v.(string); ok {
					r.Properties[rest] = s
				}
			}
		}
	}
	return r
}

// normalizeRelationType maps arbitrary relation text onto a snake_case
// identifier safe for every graph backend.
func normalizeRelationType(relationType string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(relationType) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			sb.WriteRune('_')
		}
	}
	normalized := strings.Trim(sb.String(), "_")
	if normalized == "" {
		return normalized
	}
	if first := normalized[0]; first >= '0' && first <= '9' {
		normalized = "rel_" + normalized
	}
	return normalized
}
