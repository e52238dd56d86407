// Package accesscmder provides the access command family for managing
// cross-domain grants.
package accesscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/cliui"
	"github.com/mnemolabs/mnemo/pkg/config"
	"github.com/mnemolabs/mnemo/pkg/engine"
	"github.com/mnemolabs/mnemo/pkg/memory"
)

const accessLongDesc string = `Manage cross-domain access.

Domains are isolated by default: memories in one domain are invisible to
queries and consolidation runs from another. Access opens through an explicit
grant. A request names a source domain, a target domain, and an operation
(read or write); a human approves or denies it. Approvals and denials are
terminal. Re-requesting after a denial creates a new pending request.

Use subcommands to request, resolve, or list grants:
  mnemo access request <source> <target> <operation>    Submit a request
  mnemo access resolve <id> --approve|--deny            Resolve a request
  mnemo access list [--status pending]                  List requests

Examples:
  mnemo access request personal professional read --justification "meeting prefs"
  mnemo access resolve 7c9e6679-7425-40de-944b-e07fc1f90ae7 --approve
  mnemo access list --status pending`

const accessShortDesc string = "Manage cross-domain access"

func NewAccessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access",
		Short: accessShortDesc,
		Long:  accessLongDesc,
	}

	cmd.AddCommand(newRequestCmd())
	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// newEngine builds the memory engine from persisted config. The caller owns
// Close.
func newEngine(ctx context.Context, configDir string, zlog *zap.Logger) (*engine.Engine, error) {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	eng, err := engine.FromConfig(ctx, cfg, zlog)
	if err != nil {
		return nil, fmt.Errorf("building memory engine: %w", err)
	}

	return eng, nil
}

func statusMark(status memory.RequestStatus) string {
	switch status {
	case memory.StatusApproved:
		return cliui.SuccessMark
	case memory.StatusDenied:
		return cliui.FailMark
	default:
		return cliui.PendingMark
	}
}
