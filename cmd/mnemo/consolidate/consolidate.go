// Package consolidatecmder provides the consolidate command for promoting
// episodic memories into semantic concepts.
package consolidatecmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/cliui"
	"github.com/mnemolabs/mnemo/pkg/config"
	"github.com/mnemolabs/mnemo/pkg/consolidation"
	"github.com/mnemolabs/mnemo/pkg/dotdir"
	"github.com/mnemolabs/mnemo/pkg/engine"
	"github.com/mnemolabs/mnemo/pkg/logger"
)

type consolidateCommander struct {
	domain string
	batch  int
	all    bool

	configDir string
	cfg       *config.Config

	debug  bool
	logger *zap.Logger
}

const consolidateLongDesc string = `Run a consolidation pass.

Consolidation reads unconsolidated episodic memories, extracts concept and
relationship candidates, and promotes candidates whose confidence clears the
threshold into the semantic layer. Promoted memories are marked so they are
never considered twice.

One pass covers a single domain. Pass --all to run every known domain in
sequence. The batch size bounds how many memories one pass considers; it
defaults to consolidation.batch_size from config.

Examples:
  mnemo consolidate --domain professional
  mnemo consolidate --domain professional --batch 100
  mnemo consolidate --all`

const consolidateShortDesc string = "Promote memories into concepts"

func NewConsolidateCmd() *cobra.Command {
	cmder := &consolidateCommander{}

	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: consolidateShortDesc,
		Long:  consolidateLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cfger, err := config.NewConfiger(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.cfg = cfg

			if !cmd.Flags().Changed("batch") {
				cmder.batch = cfg.Consolidation.BatchSize
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.domain, "domain", "", "Domain to consolidate (defaults to the workspace domain)")
	cmd.Flags().IntVarP(&cmder.batch, "batch", "b", 0, "Memories to consider in this pass")
	cmd.Flags().BoolVar(&cmder.all, "all", false, "Consolidate every known domain")

	return cmd
}

func (c *consolidateCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if !c.all && c.domain == "" {
		state, err := dotdir.NewManager().LoadWorkspaceState(c.configDir)
		if err != nil {
			return fmt.Errorf("loading workspace state: %w", err)
		}
		if state != nil {
			c.domain = state.Domain
		}
	}
	if !c.all && c.domain == "" {
		return errors.New(`no domain given: pass --domain, --all, or run "mnemo domains use <domain>"`)
	}

	eng, err := engine.FromConfig(ctx, c.cfg, c.logger)
	if err != nil {
		return fmt.Errorf("building memory engine: %w", err)
	}
	defer func() { _ = eng.Close() }()

	domains := []string{c.domain}
	if c.all {
		domains, err = eng.Domains(ctx)
		if err != nil {
			return fmt.Errorf("listing domains: %w", err)
		}
		if len(domains) == 0 {
			fmt.Println("No domains yet. Store a memory first with \"mnemo remember\".")
			return nil
		}
	}

	for _, domain := range domains {
		var summary consolidation.Summary
		if err := cliui.Step(os.Stdout, fmt.Sprintf("Consolidating %s", domain), func() error {
			var runErr error
			summary, runErr = eng.RunConsolidation(ctx, domain, c.batch)
			return runErr
		}); err != nil {
			return fmt.Errorf("consolidating %s: %w", domain, err)
		}

		printSummary(summary)
	}

	return nil
}

func printSummary(s consolidation.Summary) {
	rows := []struct {
		label string
		count int
	}{
		{"considered", s.Considered},
		{"promoted", s.Promoted},
		{"below threshold", s.BelowThreshold},
		{"denied by domain", s.DeniedByDomain},
		{"no candidates", s.NoCandidates},
		{"failed", s.Failed},
	}

	fmt.Println()
	for _, row := range rows {
		value := cliui.ValueStyle.Render(strconv.Itoa(row.count))
		if row.label == "promoted" && row.count > 0 {
			value = cliui.NameStyle.Render(strconv.Itoa(row.count))
		}
		fmt.Printf("  %s %s\n", cliui.KeyStyle.Render(fmt.Sprintf("%-16s", row.label)), value)
	}
	fmt.Println()
}
