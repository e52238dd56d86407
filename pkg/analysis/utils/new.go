package analysisutils

import (
	"fmt"
	"os"

	"github.com/mnemolabs/mnemo/pkg/analysis"
	"github.com/mnemolabs/mnemo/pkg/analysis/heuristic"
	"github.com/mnemolabs/mnemo/pkg/analysis/llm"
)

// NewAnalyzerOpts selects and configures an analyzer provider.
type NewAnalyzerOpts struct {
	ProviderType string
	Model        string
	TargetURL    string
	APIKey       string
}

// NewAnalyzer returns the analyzer for the given provider type.
func NewAnalyzer(o *NewAnalyzerOpts) (analysis.Analyzer, error) {
	switch o.ProviderType {
	case "heuristic":
		return heuristic.NewAnalyzer(), nil
	case "anthropic":
		apiKey := o.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic analysis provider requires an API key")
		}
		return llm.NewAnalyzer(llm.NewAnthropicCaller(apiKey, o.Model, o.TargetURL))
	case "ollama":
		return llm.NewAnalyzer(llm.NewOllamaCaller(o.Model, o.TargetURL))
	default:
		return nil, fmt.Errorf("unsupported analysis provider: %s", o.ProviderType)
	}
}
