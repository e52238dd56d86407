// Package vectorutils is the vector index utility package
package vectorutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/vector"
	"github.com/mnemolabs/mnemo/pkg/vector/chromem"
	"github.com/mnemolabs/mnemo/pkg/vector/inmemory"
	"github.com/mnemolabs/mnemo/pkg/vector/sqlitevec"
)

type NewIndexOpts struct {
	ProviderType string
	Path         string
	Dimensions   int
	Logger       *zap.Logger
}

// NewIndex builds the configured vector index backend.
func NewIndex(o *NewIndexOpts) (vector.Index, error) {
	switch o.ProviderType {
	case "memory":
		return inmemory.NewIndex(), nil
	case "sqlitevec":
		return sqlitevec.NewIndex(sqlitevec.Config{
			Path:       o.Path,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "chromem":
		return chromem.NewIndex(chromem.Config{}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector index provider: %s", o.ProviderType)
	}
}
