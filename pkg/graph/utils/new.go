package graphutils

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/graph"
	"github.com/mnemolabs/mnemo/pkg/graph/inmemory"
	graphneo4j "github.com/mnemolabs/mnemo/pkg/graph/neo4j"
)

// NewStoreOpts selects and configures a graph store backend.
type NewStoreOpts struct {
	ProviderType string
	URI          string
	Username     string
	Password     string
	Database     string
	Logger       *zap.Logger
}

// NewStore returns the graph store for the given provider type. The context
// bounds connection setup for networked backends.
func NewStore(ctx context.Context, o *NewStoreOpts) (graph.Store, error) {
	switch o.ProviderType {
	case "memory":
		return inmemory.NewStore(), nil
	case "neo4j":
		return graphneo4j.NewStore(ctx, graphneo4j.Config{
			URI:      o.URI,
			Username: o.Username,
			Password: o.Password,
			Database: o.Database,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported graph store provider: %s", o.ProviderType)
	}
}
