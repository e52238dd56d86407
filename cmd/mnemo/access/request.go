package accesscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/cliui"
	"github.com/mnemolabs/mnemo/pkg/logger"
)

type requestCommander struct {
	source        string
	target        string
	operation     string
	justification string

	configDir string
	debug     bool
	logger    *zap.Logger
}

const requestLongDesc string = `Submit a cross-domain access request.

The request starts pending and grants nothing until approved. Source and
target must differ, the operation is "read" or "write", and a justification
is required. Submitting the same source/target/operation tuple while a
pending request exists returns the existing request instead of a duplicate.

Examples:
  mnemo access request personal professional read --justification "meeting prefs"
  mnemo access request professional personal write -j "archive standup notes"`

const requestShortDesc string = "Submit a cross-domain access request"

func newRequestCmd() *cobra.Command {
	cmder := &requestCommander{}

	cmd := &cobra.Command{
		Use:   "request <source> <target> <operation>",
		Short: requestShortDesc,
		Long:  requestLongDesc,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.source = args[0]
			cmder.target = args[1]
			cmder.operation = args[2]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.justification, "justification", "j", "", "Why this access is needed")

	return cmd
}

func (c *requestCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	eng, err := newEngine(ctx, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	req, err := eng.RequestCrossDomainAccess(ctx, c.source, c.target, c.operation, c.justification)
	if err != nil {
		return fmt.Errorf("requesting access: %w", err)
	}

	fmt.Printf("\n  %s Request %s\n", statusMark(req.Status), cliui.NameStyle.Render(req.ID))
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render(fmt.Sprintf(
		"%s -> %s (%s), status %s", req.SourceDomain, req.TargetDomain, req.Operation, req.Status)))

	return nil
}
