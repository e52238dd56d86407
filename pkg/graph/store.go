// Package graph defines the relationship store the semantic layer persists
// concepts and relationships into. Implementations live in subpackages
// (inmemory, neo4j) and are constructed through the graphutils factory.
//
// Stores deal in generic labeled nodes and typed edges. Upserts replace the
// stored element wholesale; merge policy (confidence ceilings, property
// conflict resolution) belongs to the semantic layer above.
package graph

import "context"

// Node is a labeled graph node, unique per (Label, Key).
type Node struct {
	ID         string
	Label      string
	Key        string
	Properties map[string]any
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	if n.Properties != nil {
		out.Properties = make(map[string]any, len(n.Properties))
		for k, v := range n.Properties {
			out.Properties[k] = v
		}
	}
	return out
}

// Edge is a directed, typed edge between two nodes, unique per
// (FromID, ToID, Type).
type Edge struct {
	ID         string
	FromID     string
	ToID       string
	Type       string
	Properties map[string]any
}

// Clone returns a deep copy of the edge.
func (e Edge) Clone() Edge {
	out := e
	if e.Properties != nil {
		out.Properties = make(map[string]any, len(e.Properties))
		for k, v := range e.Properties {
			out.Properties[k] = v
		}
	}
	return out
}

// Match describes a structural node query: exact equality on label and
// properties plus a bounded expansion along edges in either direction.
type Match struct {
	// Label restricts to nodes with this label. Empty matches every label.
	Label string

	// Domain restricts on the "domain" property. Empty matches everything.
	Domain string

	// Name restricts on the "name" property. Empty matches everything.
	Name string

	// Properties restricts on exact equality of each listed property.
	Properties map[string]any

	// Depth expands the result by up to this many hops from matched nodes.
	// Zero returns matched nodes only.
	Depth int
}

// Result holds the nodes and edges a Match produced.
type Result struct {
	Nodes []Node
	Edges []Edge
}

// Store persists labeled nodes and typed edges. Implementations must be safe
// for concurrent use and every upsert must be atomic.
type Store interface {
	// UpsertNode inserts or replaces the node stored under (Label, Key) and
	// returns its ID. Replacement keeps the original ID stable.
	UpsertNode(ctx context.Context, node Node) (string, error)

	// GetNode returns the node stored under (label, key), or ErrNotFound.
	GetNode(ctx context.Context, label, key string) (Node, error)

	// UpsertEdge inserts or replaces the edge stored under
	// (FromID, ToID, Type) and returns its ID. Both endpoints must exist.
	UpsertEdge(ctx context.Context, edge Edge) (string, error)

	// GetEdge returns the edge stored under (fromID, toID, edgeType), or
	// ErrNotFound.
	GetEdge(ctx context.Context, fromID, toID, edgeType string) (Edge, error)

	// Match runs a structural query with bounded expansion.
	Match(ctx context.Context, q Match) (Result, error)

	// Domains returns the distinct values of the "domain" property across
	// all nodes, sorted.
	Domains(ctx context.Context) ([]string, error)

	// Close releases resources held by the store.
	Close() error
}
