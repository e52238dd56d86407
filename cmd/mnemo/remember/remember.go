// Package remembercmder provides the remember command for storing a raw
// experience in the episodic layer.
package remembercmder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/cliui"
	"github.com/mnemolabs/mnemo/pkg/config"
	"github.com/mnemolabs/mnemo/pkg/dotdir"
	"github.com/mnemolabs/mnemo/pkg/engine"
	"github.com/mnemolabs/mnemo/pkg/logger"
	"github.com/mnemolabs/mnemo/pkg/memory"
)

// rememberFlagKeys are the provider overrides this command exposes from the
// shared flag registry.
var rememberFlagKeys = []string{
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagVectorStoreProv,
	config.FlagVectorStorePath,
}

type rememberCommander struct {
	content    string
	domain     string
	importance float64
	source     string
	contexts   []string

	embeddingProvider string
	embeddingTarget   string
	embeddingModel    string
	vectorProvider    string
	vectorPath        string

	configDir string
	cfg       *config.Config

	debug  bool
	logger *zap.Logger
}

const rememberLongDesc string = `Store a raw experience in the episodic layer.

The content is embedded and indexed for similarity search. Every memory
belongs to exactly one domain; pass --domain or select a workspace domain
first with "mnemo domains use <domain>".

Importance weights the memory for later consolidation. Context pairs are
free-form metadata carried with the record; a source pair is always set.

Examples:
  mnemo remember "Customer prefers email over phone" --domain professional
  mnemo remember "Standup moved to 9:30" --domain professional --importance 0.7
  mnemo remember "Met Alice at the conference" --domain personal --context location=Berlin`

const rememberShortDesc string = "Store a memory"

func NewRememberCmd() *cobra.Command {
	cmder := &rememberCommander{}

	cmd := &cobra.Command{
		Use:   "remember <content>",
		Short: rememberShortDesc,
		Long:  rememberLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.DefaultFlagSet, rememberFlagKeys)
			cmder.cfg = config.ConfigFromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.content = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.domain, "domain", "", "Domain tag for the memory (defaults to the workspace domain)")
	cmd.Flags().Float64VarP(&cmder.importance, "importance", "i", 0.5, "Importance in [0,1]")
	cmd.Flags().StringVarP(&cmder.source, "source", "s", "cli", "Source label recorded in the memory context")
	cmd.Flags().StringArrayVarP(&cmder.contexts, "context", "c", nil, "Additional context pair key=value (repeatable)")

	config.AddStringFlag(cmd, config.DefaultFlagSet, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, config.DefaultFlagSet, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, config.DefaultFlagSet, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddStringFlag(cmd, config.DefaultFlagSet, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, config.DefaultFlagSet, config.FlagVectorStorePath, &cmder.vectorPath)

	return cmd
}

func (c *rememberCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if c.domain == "" {
		state, err := dotdir.NewManager().LoadWorkspaceState(c.configDir)
		if err != nil {
			return fmt.Errorf("loading workspace state: %w", err)
		}
		if state != nil {
			c.domain = state.Domain
		}
	}
	if c.domain == "" {
		return errors.New(`no domain given: pass --domain or run "mnemo domains use <domain>"`)
	}

	rec := memory.Record{
		Content:    c.content,
		Domain:     c.domain,
		Importance: c.importance,
		Context:    map[string]string{memory.ContextSource: c.source},
	}
	for _, pair := range c.contexts {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid context pair %q (want key=value)", pair)
		}
		rec.Context[key] = value
	}

	eng, err := engine.FromConfig(ctx, c.cfg, c.logger)
	if err != nil {
		return fmt.Errorf("building memory engine: %w", err)
	}
	defer func() { _ = eng.Close() }()

	id, err := eng.StoreEpisodic(ctx, rec)
	if err != nil {
		return fmt.Errorf("storing memory: %w", err)
	}

	fmt.Printf("\n  %s Remembered %s\n", cliui.SuccessMark, cliui.NameStyle.Render(id))
	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("domain:"),
		cliui.ValueStyle.Render(fmt.Sprintf("%s (importance %.2f)", c.domain, c.importance)),
	)
	return nil
}
