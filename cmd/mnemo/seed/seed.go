// Package seedcmder provides the seed command for loading demo memories.
package seedcmder

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/cliui"
	"github.com/mnemolabs/mnemo/pkg/config"
	"github.com/mnemolabs/mnemo/pkg/consolidation"
	"github.com/mnemolabs/mnemo/pkg/engine"
	"github.com/mnemolabs/mnemo/pkg/logger"
	"github.com/mnemolabs/mnemo/pkg/memory"
)

type demoMemory struct {
	domain     string
	content    string
	importance float64
}

// demoMemories are the fixtures seeded per domain. Contents are phrased so
// the heuristic analyzer finds properties, relationships, and events.
var demoMemories = []demoMemory{
	{"professional", "Customer prefers email over phone", 0.9},
	{"professional", "Alice manages the platform team", 0.8},
	{"professional", "Acme Corp is the largest account", 0.7},
	{"professional", "Quarterly review happened on Friday", 0.6},
	{"personal", "Marie likes hiking on weekends", 0.7},
	{"personal", "Met Oliver at the jazz festival yesterday", 0.6},
	{"personal", "Sister owns a bakery in Lyon", 0.8},
	{"health", "Coach teaches yoga on Tuesdays", 0.7},
	{"health", "Annual checkup occurred on Monday", 0.5},
}

const seedLongDesc string = `Seed demo memories.

Loads a small set of demo memories across the professional, personal, and
health domains, phrased so consolidation finds concepts to promote. Pass
--domain to seed everything into a single domain instead, or --consolidate
to run a consolidation pass over the seeded domains right away.

With the default in-process stores the seeded data lives only as long as
the command; configure vector_store and graph_store providers for durable
stores, or pass --consolidate to watch a full pass in one go.

Examples:
  mnemo seed
  mnemo seed --domain scratch
  mnemo seed --consolidate`

const seedShortDesc string = "Seed demo memories"

type seedCommander struct {
	domain      string
	consolidate bool

	configDir string
	debug     bool
	logger    *zap.Logger
}

func NewSeedCmd() *cobra.Command {
	cmder := &seedCommander{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: seedShortDesc,
		Long:  seedLongDesc,
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

	cmd.Flags().StringVar(&cmder.domain, "domain", "", "Seed every memory into this domain")
	cmd.Flags().BoolVar(&cmder.consolidate, "consolidate", false, "Run consolidation over the seeded domains")

	return cmd
}

func (c *seedCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

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

	memories := make([]demoMemory, len(demoMemories))
	copy(memories, demoMemories)
	if c.domain != "" {
		for i := range memories {
			memories[i].domain = c.domain
		}
	}

	var stored int
	if err := cliui.Step(os.Stdout, "Seeding demo memories", func() error {
		for _, m := range memories {
			rec := memory.Record{
				Content:    m.content,
				Domain:     m.domain,
				Importance: m.importance,
				Context:    map[string]string{memory.ContextSource: "seed"},
			}
			if _, err := eng.StoreEpisodic(ctx, rec); err != nil {
				return err
			}
			stored++
		}
		return nil
	}); err != nil {
		return err
	}

	domains := seededDomains(memories)

	fmt.Printf("\n  %s Seeded %s memories %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(strconv.Itoa(stored)),
		cliui.DimStyle.Render(fmt.Sprintf("(%d domains)", len(domains))),
	)

	if !c.consolidate {
		return nil
	}

	promoted := 0
	for _, domain := range domains {
		var summary consolidation.Summary
		if err := cliui.Step(os.Stdout, fmt.Sprintf("Consolidating %s", domain), func() error {
			var runErr error
			summary, runErr = eng.RunConsolidation(ctx, domain, len(memories))
			return runErr
		}); err != nil {
			return fmt.Errorf("consolidating %s: %w", domain, err)
		}
		promoted += summary.Promoted
	}

	fmt.Printf("\n  %s Promoted %s concepts\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(strconv.Itoa(promoted)),
	)

	return nil
}

// seededDomains returns the distinct domains in fixture order.
func seededDomains(memories []demoMemory) []string {
	seen := make(map[string]bool, len(memories))
	domains := make([]string, 0, len(memories))
	for _, m := range memories {
		if seen[m.domain] {
			continue
		}
		seen[m.domain] = true
		domains = append(domains, m.domain)
	}
	return domains
}
