package accesscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/cliui"
	"github.com/mnemolabs/mnemo/pkg/logger"
	"github.com/mnemolabs/mnemo/pkg/memory"
	"github.com/mnemolabs/mnemo/pkg/utils"
)

type listCommander struct {
	status string

	configDir string
	debug     bool
	logger    *zap.Logger
}

const listLongDesc string = `List cross-domain access requests.

Shows every request ordered by creation time, oldest first. Pass --status
to narrow the listing to pending, approved, or denied requests.

Examples:
  mnemo access list
  mnemo access list --status pending`

const listShortDesc string = "List access requests"

func newListCmd() *cobra.Command {
	cmder := &listCommander{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.status, "status", "", "Filter by status (pending, approved, denied)")

	return cmd
}

func (c *listCommander) run(ctx context.Context) error {
	var filter memory.RequestStatus
	if c.status != "" {
		filter = memory.RequestStatus(c.status)
		switch filter {
		case memory.StatusPending, memory.StatusApproved, memory.StatusDenied:
		default:
			return fmt.Errorf("unknown status %q (want pending, approved, or denied)", c.status)
		}
	}

	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	eng, err := newEngine(ctx, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	requests, err := eng.AccessRequests(ctx)
	if err != nil {
		return fmt.Errorf("listing requests: %w", err)
	}

	if filter != "" {
		kept := requests[:0]
		for _, req := range requests {
			if req.Status == filter {
				kept = append(kept, req)
			}
		}
		requests = kept
	}

	if len(requests) == 0 {
		fmt.Printf("  %s\n", cliui.DimStyle.Render("No access requests."))
		return nil
	}

	fmt.Println()
	for _, req := range requests {
		fmt.Printf("  %s %s  %s\n",
			statusMark(req.Status),
			cliui.ValueStyle.Render(req.ID),
			cliui.KeyStyle.Render(fmt.Sprintf("%s -> %s (%s)", req.SourceDomain, req.TargetDomain, req.Operation)),
		)
		fmt.Printf("    %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%s, %s", req.Status, utils.Truncate(req.Justification, 60))),
		)
	}
	fmt.Println()

	return nil
}
