// Package neo4j implements the graph Store on a Neo4j server. Nodes are
// addressed by a key property under their label and edges by endpoint
// element IDs plus relationship type.
package neo4j

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/graph"
)

const (
	// DefaultURI is the bolt endpoint of a local Neo4j server.
	DefaultURI = "bolt://localhost:7687"

	maxConnectRetries = 5
	baseRetryDelay    = 100 * time.Millisecond
)

// Config holds the connection settings for a Neo4j store.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Store talks to a Neo4j server through the official driver.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewStore connects to Neo4j and verifies connectivity with exponential
// backoff before returning.
func NewStore(ctx context.Context, c Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c.URI == "" {
		c.URI = DefaultURI
	}

	driver, err := neo4j.NewDriverWithContext(c.URI, neo4j.BasicAuth(c.Username, c.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("%w: create driver: %v", graph.ErrConnection, err)
	}

	for attempt := 0; attempt < maxConnectRetries; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay * time.Duration(1<<uint(attempt-1))
			logger.Debug("retrying neo4j connection",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				_ = driver.Close(ctx)
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		err = driver.VerifyConnectivity(ctx)
		if err == nil {
			break
		}
	}
	if err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("%w: verify connectivity: %v", graph.ErrConnection, err)
	}

	logger.Debug("connected to neo4j", zap.String("uri", c.URI))

	return &Store{
		driver:   driver,
		database: c.Database,
		logger:   logger,
	}, nil
}

// UpsertNode merges the node identified by (Label, Key) and replaces its
// properties.
func (s *Store) UpsertNode(ctx context.Context, node graph.Node) (string, error) {
	if node.Label == "" || node.Key == "" {
		return "", fmt.Errorf("upsert node: label and key are required")
	}

	label, err := sanitizeIdentifier(node.Label)
	if err != nil {
		return "", err
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	// Labels cannot be parameterized in Cypher, so the sanitized label is
	// interpolated. SET n = $props wipes the key, so it is re-set after.
	query := fmt.Sprintf(`
		MERGE (n:%s {key: $key})
		SET n = $props
		SET n.key = $key
		RETURN elementId(n) AS id`, label)

	id, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{
			"key":   node.Key,
			"props": node.Properties,
		})
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		id, _ := record.Get("id")
		return id, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: upsert node: %v", graph.ErrConnection, err)
	}
	return id.(string), nil
}

// GetNode returns the node stored under (label, key).
func (s *Store) GetNode(ctx context.Context, label, key string) (graph.Node, error) {
	sanitized, err := sanitizeIdentifier(label)
	if err != nil {
		return graph.Node{}, err
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH (n:%s {key: $key})
		RETURN elementId(n) AS id, labels(n) AS labels, properties(n) AS props`, sanitized)

	raw, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{"key": key})
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return graph.Node{}, fmt.Errorf("%w: get node: %v", graph.ErrConnection, err)
	}

	records := raw.([]*neo4j.Record)
	if len(records) == 0 {
		return graph.Node{}, fmt.Errorf("%w: node %s/%s", graph.ErrNotFound, label, key)
	}
	return nodeFromRecord(records[0])
}

// UpsertEdge merges the relationship identified by (FromID, ToID, Type) and
// replaces its properties. Both endpoints must already exist.
func (s *Store) UpsertEdge(ctx context.Context, edge graph.Edge) (string, error) {
	if edge.FromID == "" || edge.ToID == "" || edge.Type == "" {
		return "", fmt.Errorf("upsert edge: from, to and type are required")
	}

	relType, err := sanitizeIdentifier(edge.Type)
	if err != nil {
		return "", err
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH (a) WHERE elementId(a) = $from
		MATCH (b) WHERE elementId(b) = $to
		MERGE (a)-[r:%s]->(b)
		SET r = $props
		RETURN elementId(r) AS id`, relType)

	props := edge.Properties
	if props == nil {
		props = map[string]any{}
	}

	raw, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{
			"from":  edge.FromID,
			"to":    edge.ToID,
			"props": props,
		})
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return "", fmt.Errorf("%w: upsert edge: %v", graph.ErrConnection, err)
	}

	records := raw.([]*neo4j.Record)
	if len(records) == 0 {
		return "", fmt.Errorf("%w: edge endpoints %s, %s", graph.ErrNotFound, edge.FromID, edge.ToID)
	}
	id, _ := records[0].Get("id")
	return id.(string), nil
}

// GetEdge returns the relationship stored under (fromID, toID, edgeType).
func (s *Store) GetEdge(ctx context.Context, fromID, toID, edgeType string) (graph.Edge, error) {
	relType, err := sanitizeIdentifier(edgeType)
	if err != nil {
		return graph.Edge{}, err
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH (a)-[r:%s]->(b)
		WHERE elementId(a) = $from AND elementId(b) = $to
		RETURN elementId(r) AS id, elementId(a) AS from, elementId(b) AS to,
		       type(r) AS type, properties(r) AS props`, relType)

	raw, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{"from": fromID, "to": toID})
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return graph.Edge{}, fmt.Errorf("%w: get edge: %v", graph.ErrConnection, err)
	}

	records := raw.([]*neo4j.Record)
	if len(records) == 0 {
		return graph.Edge{}, fmt.Errorf("%w: edge %s-[%s]->%s", graph.ErrNotFound, fromID, edgeType, toID)
	}
	return edgeFromRecord(records[0])
}

// Match selects seed nodes by label and property filters and expands paths
// up to q.Depth hops in either direction.
func (s *Store) Match(ctx context.Context, q graph.Match) (graph.Result, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	seedQuery, params, err := buildSeedQuery(q)
	if err != nil {
		return graph.Result{}, err
	}

	raw, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, seedQuery, params)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return graph.Result{}, fmt.Errorf("%w: match seeds: %v", graph.ErrConnection, err)
	}

	nodesByID := make(map[string]graph.Node)
	seedIDs := make([]string, 0)
	for _, record := range raw.([]*neo4j.Record) {
		node, err := nodeFromRecord(record)
		if err != nil {
			return graph.Result{}, err
		}
		nodesByID[node.ID] = node
		seedIDs = append(seedIDs, node.ID)
	}

	edgesByID := make(map[string]graph.Edge)
	if q.Depth > 0 && len(seedIDs) > 0 {
		// Variable-length bounds cannot be parameterized either.
		expandQuery := fmt.Sprintf(`
			MATCH (seed) WHERE elementId(seed) IN $ids
			MATCH p = (seed)-[*1..%d]-(m)
			UNWIND nodes(p) AS n
			UNWIND relationships(p) AS r
			RETURN
			  collect(DISTINCT {id: elementId(n), labels: labels(n), props: properties(n)}) AS nodes,
			  collect(DISTINCT {id: elementId(r), from: elementId(startNode(r)), to: elementId(endNode(r)), type: type(r), props: properties(r)}) AS rels`,
			q.Depth)

		raw, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, expandQuery, map[string]any{"ids": seedIDs})
			if err != nil {
				return nil, err
			}
			return result.Collect(ctx)
		})
		if err != nil {
			return graph.Result{}, fmt.Errorf("%w: match expansion: %v", graph.ErrConnection, err)
		}

		for _, record := range raw.([]*neo4j.Record) {
			rawNodes, _ := record.Get("nodes")
			for _, entry := range rawNodes.([]any) {
				node, err := nodeFromMap(entry.(map[string]any))
				if err != nil {
					return graph.Result{}, err
				}
				nodesByID[node.ID] = node
			}
			rawRels, _ := record.Get("rels")
			for _, entry := range rawRels.([]any) {
				edge, err := edgeFromMap(entry.(map[string]any))
				if err != nil {
					return graph.Result{}, err
				}
				edgesByID[edge.ID] = edge
			}
		}
	}

	result := graph.Result{
		Nodes: make([]graph.Node, 0, len(nodesByID)),
		Edges: make([]graph.Edge, 0, len(edgesByID)),
	}
	for _, node := range nodesByID {
		result.Nodes = append(result.Nodes, node)
	}
	for _, edge := range edgesByID {
		result.Edges = append(result.Edges, edge)
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

// Domains returns the distinct values of the domain property, sorted.
func (s *Store) Domains(ctx context.Context) ([]string, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (n) WHERE n.domain IS NOT NULL
		RETURN DISTINCT n.domain AS domain
		ORDER BY domain`

	raw, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list domains: %v", graph.ErrConnection, err)
	}

	domains := make([]string, 0)
	for _, record := range raw.([]*neo4j.Record) {
		value, _ := record.Get("domain")
		if domain, ok := value.(string); ok && domain != "" {
			domains = append(domains, domain)
		}
	}
	return domains, nil
}

// Close shuts down the underlying driver.
func (s *Store) Close() error {
	return s.driver.Close(context.Background())
}

func (s *Store) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

func buildSeedQuery(q graph.Match) (string, map[string]any, error) {
	var sb strings.Builder
	params := make(map[string]any)

	sb.WriteString("MATCH (n")
	if q.Label != "" {
		label, err := sanitizeIdentifier(q.Label)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(":")
		sb.WriteString(label)
	}
	sb.WriteString(")")

	conditions := make([]string, 0)
	if q.Domain != "" {
		conditions = append(conditions, "n.domain = $domain")
		params["domain"] = q.Domain
	}
	if q.Name != "" {
		conditions = append(conditions, "n.name = $name")
		params["name"] = q.Name
	}

	keys := make([]string, 0, len(q.Properties))
	for key := range q.Properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for i, key := range keys {
		sanitized, err := sanitizeIdentifier(key)
		if err != nil {
			return "", nil, err
		}
		param := fmt.Sprintf("p%d", i)
		conditions = append(conditions, fmt.Sprintf("n.%s = $%s", sanitized, param))
		params[param] = q.Properties[key]
	}

	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}
	sb.WriteString(" RETURN elementId(n) AS id, labels(n) AS labels, properties(n) AS props")

	return sb.String(), params, nil
}

// sanitizeIdentifier guards the label, relationship type and property names
// that Cypher cannot take as parameters.
func sanitizeIdentifier(identifier string) (string, error) {
	if identifier == "" {
		return "", fmt.Errorf("empty identifier")
	}
	for i, r := range identifier {
		ok := r == '_' ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(i > 0 && r >= '0' && r <= '9')
		if !ok {
			return "", fmt.Errorf("invalid identifier: %q", identifier)
		}
	}
	return identifier, nil
}

func nodeFromRecord(record *neo4j.Record) (graph.Node, error) {
	id, _ := record.Get("id")
	labels, _ := record.Get("labels")
	props, _ := record.Get("props")
	return buildNode(id, labels, props)
}

func nodeFromMap(entry map[string]any) (graph.Node, error) {
	return buildNode(entry["id"], entry["labels"], entry["props"])
}

func buildNode(rawID, rawLabels, rawProps any) (graph.Node, error) {
	id, ok := rawID.(string)
	if !ok {
		return graph.Node{}, fmt.Errorf("unexpected node id type %T", rawID)
	}

	node := graph.Node{ID: id, Properties: map[string]any{}}

	if labels, ok := rawLabels.([]any); ok && len(labels) > 0 {
		if label, ok := labels[0].(string); ok {
			node.Label = label
		}
	}

	if props, ok := rawProps.(map[string]any); ok {
		for k, v := range props {
			if k == "key" {
				if key, ok := v.(string); ok {
					node.Key = key
				}
				continue
			}
			node.Properties[k] = v
		}
	}

	return node, nil
}

func edgeFromRecord(record *neo4j.Record) (graph.Edge, error) {
	entry := map[string]any{}
	for _, field := range []string{"id", "from", "to", "type", "props"} {
		value, _ := record.Get(field)
		entry[field] = value
	}
	return edgeFromMap(entry)
}

func edgeFromMap(entry map[string]any) (graph.Edge, error) {
	id, ok := entry["id"].(string)
	if !ok {
		return graph.Edge{}, fmt.Errorf("unexpected edge id type %T", entry["id"])
	}

	edge := graph.Edge{ID: id, Properties: map[string]any{}}
	if from, ok := entry["from"].(string); ok {
		edge.FromID = from
	}
	if to, ok := entry["to"].(string); ok {
		edge.ToID = to
	}
	if edgeType, ok := entry["type"].(string); ok {
		edge.Type = edgeType
	}
	if props, ok := entry["props"].(map[string]any); ok {
		for k, v := range props {
			edge.Properties[k] = v
		}
	}
	return edge, nil
}

var _ graph.Store = (*Store)(nil)
