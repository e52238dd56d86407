package accesscmder

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/cliui"
	"github.com/mnemolabs/mnemo/pkg/logger"
)

type resolveCommander struct {
	requestID string
	approve   bool
	deny      bool

	configDir string
	debug     bool
	logger    *zap.Logger
}

const resolveLongDesc string = `Approve or deny a pending access request.

Exactly one of --approve or --deny is required. Resolution is terminal:
an approved or denied request never changes again. Approving opens the
requested operation between the two domains from this point on.

Examples:
  mnemo access resolve 7c9e6679-7425-40de-944b-e07fc1f90ae7 --approve
  mnemo access resolve 7c9e6679-7425-40de-944b-e07fc1f90ae7 --deny`

const resolveShortDesc string = "Approve or deny an access request"

func newResolveCmd() *cobra.Command {
	cmder := &resolveCommander{}

	cmd := &cobra.Command{
		Use:   "resolve <request-id>",
		Short: resolveShortDesc,
		Long:  resolveLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.requestID = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&cmder.approve, "approve", false, "Approve the request")
	cmd.Flags().BoolVar(&cmder.deny, "deny", false, "Deny the request")

	return cmd
}

func (c *resolveCommander) run(ctx context.Context) error {
	if c.approve == c.deny {
		return errors.New("pass exactly one of --approve or --deny")
	}

	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	eng, err := newEngine(ctx, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	req, err := eng.ResolveCrossDomainRequest(ctx, c.requestID, c.approve)
	if err != nil {
		return fmt.Errorf("resolving request: %w", err)
	}

	verb := "Denied"
	if c.approve {
		verb = "Approved"
	}

	fmt.Printf("\n  %s %s %s\n", statusMark(req.Status), verb, cliui.NameStyle.Render(req.ID))
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render(fmt.Sprintf(
		"%s -> %s (%s)", req.SourceDomain, req.TargetDomain, req.Operation)))

	return nil
}
