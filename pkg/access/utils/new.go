package accessutils

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/access"
	"github.com/mnemolabs/mnemo/pkg/access/inmemory"
	"github.com/mnemolabs/mnemo/pkg/access/postgres"
)

// NewStoreOpts selects and configures an access request store backend.
type NewStoreOpts struct {
	ProviderType string
	ConnString   string
	Logger       *zap.Logger
}

// NewStore returns the request store for the given provider type.
func NewStore(ctx context.Context, o *NewStoreOpts) (access.Store, error) {
	switch o.ProviderType {
	case "memory":
		return inmemory.NewStore(), nil
	case "postgres":
		return postgres.NewStore(ctx, o.ConnString, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported access store provider: %s", o.ProviderType)
	}
}
