// Package domainscmder provides the domains command for listing known domain
// tags and selecting the workspace domain.
package domainscmder

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/cliui"
	"github.com/mnemolabs/mnemo/pkg/config"
	"github.com/mnemolabs/mnemo/pkg/dotdir"
	"github.com/mnemolabs/mnemo/pkg/engine"
	"github.com/mnemolabs/mnemo/pkg/logger"
)

type domainsCommander struct {
	configDir string
	debug     bool
	logger    *zap.Logger
}

const domainsLongDesc string = `List known domains.

Domains exist implicitly: storing a memory under a new domain tag creates
it. The listing is the union of domains seen by both layers, with the
active workspace domain marked.

The workspace domain is the default for remember, recall, and consolidate
when no --domain flag is given. Select it with "mnemo domains use".

Examples:
  mnemo domains
  mnemo domains use professional`

const domainsShortDesc string = "List known domains"

func NewDomainsCmd() *cobra.Command {
	cmder := &domainsCommander{}

	cmd := &cobra.Command{
		Use:   "domains",
		Short: domainsShortDesc,
		Long:  domainsLongDesc,
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

	cmd.AddCommand(newUseCmd())

	return cmd
}

func (c *domainsCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	state, err := dotdir.NewManager().LoadWorkspaceState(c.configDir)
	if err != nil {
		return fmt.Errorf("loading workspace state: %w", err)
	}
	active := ""
	if state != nil {
		active = state.Domain
	}

	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	eng, err := engine.FromConfig(ctx, cfg, c.logger)
	if err != nil {
		return fmt.Errorf("building memory engine: %w", err)
	}
	defer func() { _ = eng.Close() }()

	domains, err := eng.Domains(ctx)
	if err != nil {
		return fmt.Errorf("listing domains: %w", err)
	}

	// The workspace domain counts even before anything is stored under it.
	if active != "" && !slices.Contains(domains, active) {
		domains = append(domains, active)
		sort.Strings(domains)
	}

	if len(domains) == 0 {
		fmt.Printf("  %s\n", cliui.DimStyle.Render("No domains yet. Store a memory with \"mnemo remember\"."))
		return nil
	}

	fmt.Println()
	for _, domain := range domains {
		if domain == active {
			fmt.Printf("  %s %s\n", cliui.NameStyle.Render("*"), cliui.NameStyle.Render(domain))
		} else {
			fmt.Printf("    %s\n", cliui.ValueStyle.Render(domain))
		}
	}
	fmt.Println()

	return nil
}
