// Package recallcmder provides the recall command for querying both memory
// layers and printing the merged ranking.
package recallcmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/config"
	"github.com/mnemolabs/mnemo/pkg/dotdir"
	"github.com/mnemolabs/mnemo/pkg/engine"
	"github.com/mnemolabs/mnemo/pkg/logger"
	"github.com/mnemolabs/mnemo/pkg/query"
	"github.com/mnemolabs/mnemo/pkg/utils"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	episodicTag  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	semanticTag  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// recallFlagKeys are the provider overrides this command exposes from the
// shared flag registry.
var recallFlagKeys = []string{
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagVectorStoreProv,
	config.FlagVectorStorePath,
	config.FlagGraphStoreProv,
	config.FlagGraphStoreURI,
	config.FlagAnalysisProv,
}

type recallCommander struct {
	query   string
	domain  string
	topK    int
	jsonOut bool

	embeddingProvider string
	embeddingTarget   string
	embeddingModel    string
	vectorProvider    string
	vectorPath        string
	graphProvider     string
	graphURI          string
	analysisProvider  string

	configDir string
	cfg       *config.Config

	debug  bool
	logger *zap.Logger
}

// recallResult mirrors a merged query result for JSON output.
type recallResult struct {
	Layer      string  `json:"layer"`
	Score      float64 `json:"score"`
	ID         string  `json:"id"`
	Domain     string  `json:"domain"`
	Content    string  `json:"content,omitempty"`
	Name       string  `json:"name,omitempty"`
	Type       string  `json:"type,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

const recallLongDesc string = `Recall memories matching a query.

Runs the query against both layers at once: the episodic layer by embedding
similarity and the semantic layer by concept match. Results are merged into
a single ranking, semantic concepts weighted ahead of raw episodes.

Recall is scoped to the requesting domain. Memories from other domains only
appear when an approved cross-domain read grant exists.

Use --json to emit the merged ranking as JSON for piping into other tools.

Examples:
  mnemo recall "how should we contact the customer" --domain professional
  mnemo recall "team structure" --top 10
  mnemo recall "preferences" --json | jq '.[0]'`

const recallShortDesc string = "Recall memories across both layers"

func NewRecallCmd() *cobra.Command {
	cmder := &recallCommander{}

	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: recallShortDesc,
		Long:  recallLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.DefaultFlagSet, recallFlagKeys)
			cmder.cfg = config.ConfigFromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.domain, "domain", "", "Requesting domain (defaults to the workspace domain)")
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 5, "Number of results to return")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Emit results as JSON")

	config.AddStringFlag(cmd, config.DefaultFlagSet, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, config.DefaultFlagSet, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, config.DefaultFlagSet, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddStringFlag(cmd, config.DefaultFlagSet, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, config.DefaultFlagSet, config.FlagVectorStorePath, &cmder.vectorPath)
	config.AddStringFlag(cmd, config.DefaultFlagSet, config.FlagGraphStoreProv, &cmder.graphProvider)
	config.AddStringFlag(cmd, config.DefaultFlagSet, config.FlagGraphStoreURI, &cmder.graphURI)
	config.AddStringFlag(cmd, config.DefaultFlagSet, config.FlagAnalysisProv, &cmder.analysisProvider)

	return cmd
}

func (c *recallCommander) run(ctx context.Context) error {
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

	eng, err := engine.FromConfig(ctx, c.cfg, c.logger)
	if err != nil {
		return fmt.Errorf("building memory engine: %w", err)
	}
	defer func() { _ = eng.Close() }()

	results, err := eng.QueryMemory(ctx, c.query, c.domain, c.topK)
	if err != nil {
		return fmt.Errorf("querying memory: %w", err)
	}

	if c.jsonOut {
		return printJSON(results)
	}

	if len(results) == 0 {
		fmt.Println("No memories found.")
		return nil
	}

	fmt.Printf("\n%s %s\n\n",
		headerStyle.Render("Recall results for:"),
		previewStyle.Render(fmt.Sprintf("%q", c.query)),
	)

	for i, result := range results {
		printResult(i+1, result)
	}

	return nil
}

func printResult(rank int, result query.Result) {
	tag := episodicTag.Render("[episodic]")
	if result.Layer == query.LayerSemantic {
		tag = semanticTag.Render("[semantic]")
	}

	fmt.Printf("  %s  %s  %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		scoreStyle.Render(fmt.Sprintf("score: %.4f", result.Score)),
		tag,
	)

	switch {
	case result.Concept != nil:
		fmt.Printf("  %s %s\n",
			previewStyle.Render(result.Concept.Name),
			dimStyle.Render("("+string(result.Concept.Type)+")"),
		)
		fmt.Printf("  %s\n", dimStyle.Render(fmt.Sprintf(
			"domain %s, confidence %.2f", result.Concept.Domain, result.Confidence)))

	case result.Record != nil:
		preview := strings.ReplaceAll(utils.Truncate(result.Record.Content, 80), "\n", " ")
		fmt.Printf("  %s\n", previewStyle.Render(preview))
		fmt.Printf("  %s\n", dimStyle.Render(fmt.Sprintf(
			"domain %s, similarity %.4f", result.Record.Domain, result.Similarity)))
	}

	fmt.Println()
}

func printJSON(results []query.Result) error {
	out := make([]recallResult, 0, len(results))
	for _, r := range results {
		row := recallResult{
			Layer:      string(r.Layer),
			Score:      r.Score,
			Similarity: r.Similarity,
			Confidence: r.Confidence,
		}
		switch {
		case r.Concept != nil:
			row.ID = r.Concept.ID
			row.Domain = r.Concept.Domain
			row.Name = r.Concept.Name
			row.Type = string(r.Concept.Type)
		case r.Record != nil:
			row.ID = r.Record.ID
			row.Domain = r.Record.Domain
			row.Content = r.Record.Content
		}
		out = append(out, row)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
