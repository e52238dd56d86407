// Package inmemory implements the graph Store as in-process maps with
// breadth-first expansion. It is the zero-infrastructure default backend.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mnemolabs/mnemo/pkg/graph"
)

type nodeKey struct {
	label string
	key   string
}

type edgeKey struct {
	from string
	to   string
	typ  string
}

// Store holds nodes and edges in memory guarded by a read-write mutex.
type Store struct {
	mu    sync.RWMutex
	nodes map[nodeKey]graph.Node
	byID  map[string]nodeKey
	edges map[edgeKey]graph.Edge
}

// NewStore creates an empty in-memory graph store.
func NewStore() *Store {
	return &Store{
		nodes: make(map[nodeKey]graph.Node),
		byID:  make(map[string]nodeKey),
		edges: make(map[edgeKey]graph.Edge),
	}
}

// UpsertNode inserts or replaces the node stored under (Label, Key).
func (s *Store) UpsertNode(ctx context.Context, node graph.Node) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if node.Label == "" || node.Key == "" {
		return "", fmt.Errorf("upsert node: label and key are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nk := nodeKey{label: node.Label, key: node.Key}
	stored := node.Clone()

	if existing, ok := s.nodes[nk]; ok {
		// Replacement keeps the ID stable so edges stay valid.
		stored.ID = existing.ID
	} else if stored.ID == "" {
		stored.ID = uuid.NewString()
	}

	s.nodes[nk] = stored
	s.byID[stored.ID] = nk
	return stored.ID, nil
}

// GetNode returns the node stored under (label, key).
func (s *Store) GetNode(ctx context.Context, label, key string) (graph.Node, error) {
	if err := ctx.Err(); err != nil {
		return graph.Node{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[nodeKey{label: label, key: key}]
	if !ok {
		return graph.Node{}, fmt.Errorf("%w: node %s/%s", graph.ErrNotFound, label, key)
	}
	return node.Clone(), nil
}

// UpsertEdge inserts or replaces the edge stored under (FromID, ToID, Type).
func (s *Store) UpsertEdge(ctx context.Context, edge graph.Edge) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if edge.FromID == "" || edge.ToID == "" || edge.Type == "" {
		return "", fmt.Errorf("upsert edge: from, to and type are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[edge.FromID]; !ok {
		return "", fmt.Errorf("%w: edge endpoint %s", graph.ErrNotFound, edge.FromID)
	}
	if _, ok := s.byID[edge.ToID]; !ok {
		return "", fmt.Errorf("%w: edge endpoint %s", graph.ErrNotFound, edge.ToID)
	}

	ek := edgeKey{from: edge.FromID, to: edge.ToID, typ: edge.Type}
	stored := edge.Clone()

	if existing, ok := s.edges[ek]; ok {
		stored.ID = existing.ID
	} else if stored.ID == "" {
		stored.ID = uuid.NewString()
	}

	s.edges[ek] = stored
	return stored.ID, nil
}

// GetEdge returns the edge stored under (fromID, toID, edgeType).
func (s *Store) GetEdge(ctx context.Context, fromID, toID, edgeType string) (graph.Edge, error) {
	if err := ctx.Err(); err != nil {
		return graph.Edge{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	edge, ok := s.edges[edgeKey{from: fromID, to: toID, typ: edgeType}]
	if !ok {
		return graph.Edge{}, fmt.Errorf("%w: edge %s-[%s]->%s", graph.ErrNotFound, fromID, edgeType, toID)
	}
	return edge.Clone(), nil
}

// Match runs a structural query with breadth-first expansion up to q.Depth
// hops in either edge direction.
func (s *Store) Match(ctx context.Context, q graph.Match) (graph.Result, error) {
	if err := ctx.Err(); err != nil {
		return graph.Result{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]graph.Node)
	frontier := make(map[string]struct{})

	for _, node := range s.nodes {
		if !matches(node, q) {
			continue
		}
		seen[node.ID] = node
		frontier[node.ID] = struct{}{}
	}

	edgeSeen := make(map[string]graph.Edge)
	for hop := 0; hop < q.Depth && len(frontier) > 0; hop++ {
		next := make(map[string]struct{})
		for _, edge := range s.edges {
			_, fromIn := frontier[edge.FromID]
			_, toIn := frontier[edge.ToID]
			if !fromIn && !toIn {
				continue
			}

			edgeSeen[edge.ID] = edge

			for _, endpoint := range []string{edge.FromID, edge.ToID} {
				if _, ok := seen[endpoint]; ok {
					continue
				}
				nk, ok := s.byID[endpoint]
				if !ok {
					continue
				}
				node := s.nodes[nk]
				seen[node.ID] = node
				next[node.ID] = struct{}{}
			}
		}
		frontier = next
	}

	result := graph.Result{
		Nodes: make([]graph.Node, 0, len(seen)),
		Edges: make([]graph.Edge, 0, len(edgeSeen)),
	}
	for _, node := range seen {
		result.Nodes = append(result.Nodes, node.Clone())
	}
	for _, edge := range edgeSeen {
		result.Edges = append(result.Edges, edge.Clone())
	}

	sort.Slice(result.Nodes, func(a, b int) bool {
		if result.Nodes[a].Label != result.Nodes[b].Label {
			return result.Nodes[a].Label < result.Nodes[b].Label
		}
		return result.Nodes[a].Key < result.Nodes[b].Key
	})
	sort.Slice(result.Edges, func(a, b int) bool {
		return result.Edges[a].ID < result.Edges[b].ID
	})

	return result, nil
}

// Domains returns the distinct values of the "domain" property, sorted.
func (s *Store) Domains(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(map[string]struct{})
	for _, node := range s.nodes {
		if domain, ok := node.Properties["domain"].(string); ok && domain != "" {
			set[domain] = struct{}{}
		}
	}

	domains := make([]string, 0, len(set))
	for domain := range set {
		domains = append(domains, domain)
	}
	sort.Strings(domains)
	return domains, nil
}

// Close releases resources held by the store.
func (s *Store) Close() error {
	return nil
}

func matches(node graph.Node, q graph.Match) bool {
	if q.Label != "" && node.Label != q.Label {
		return false
	}
	if q.Domain != "" {
		if domain, _ := node.Properties["domain"].(string); domain != q.Domain {
			return false
		}
	}
	if q.Name != "" {
		if name, _ := node.Properties["name"].(string); name != q.Name {
			return false
		}
	}
	for k, want := range q.Properties {
		if node.Properties[k] != want {
			return false
		}
	}
	return true
}

var _ graph.Store = (*Store)(nil)
