// Package llm implements an analyzer that asks a language model for
// candidates in JSON mode. The transport is a pluggable CallFunc so the same
// prompt and parsing serve every provider.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mnemolabs/mnemo/pkg/analysis"
)

// CallFunc is the signature for an LLM inference call.
type CallFunc func(ctx context.Context, prompt string) (string, error)

const maxContentChars = 8000

// Analyzer extracts candidates through a single LLM round trip.
type Analyzer struct {
	call CallFunc
}

// NewAnalyzer creates an analyzer on top of the given caller.
func NewAnalyzer(call CallFunc) (*Analyzer, error) {
	if call == nil {
		return nil, fmt.Errorf("%w: nil call func", analysis.ErrAnalysis)
	}
	return &Analyzer{call: call}, nil
}

// ExtractCandidates prompts the model and parses its JSON reply.
func (a *Analyzer) ExtractCandidates(ctx context.Context, text string) ([]analysis.Candidate, error) {
	if strings.TrimSpace(text) == "" {
		return []analysis.Candidate{}, nil
	}

	if runes := []rune(text); len(runes) > maxContentChars {
		text = string(runes[:maxContentChars])
	}

	response, err := a.call(ctx, buildPrompt(text))
	if err != nil {
		return nil, fmt.Errorf("%w: llm call: %v", analysis.ErrAnalysis, err)
	}

	candidates, err := parseResponse(response)
	if err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", analysis.ErrAnalysis, err)
	}
	return candidates, nil
}

// Close releases resources held by the analyzer.
func (a *Analyzer) Close() error {
	return nil
}

func buildPrompt(text string) string {
	return "Analyze this memory content and extract structured knowledge candidates.\nReturn ONLY valid JSON with this shape:\n\n{\n  \"candidates\": [\n    {\n      \"type\": \"one of: entity, property, action, event, abstract, relationship\",\n      \"fields\": {\"name\": \"...\"},\n      \"confidence\": 0.0\n    }\n  ]\n}\n\nField requirements by type: entity, action, event and abstract need \"name\"; property needs \"name\", \"subject\" and \"value\"; relationship needs \"from\", \"to\" and \"relation\" (lowercase). Confidence is your own certainty in [0,1].\n\nContent:\n" + text
}

type wireResponse struct {
	Candidates []wireCandidate `json:"candidates"`
}

type wireCandidate struct {
	Type       string            `json:"type"`
	Fields     map[string]string `json:"fields"`
	Confidence float64           `json:"confidence"`
}

func parseResponse(response string) ([]analysis.Candidate, error) {
	// The model may wrap the JSON in markdown fences or prose.
	jsonStr := response
	if idx := strings.Index(response, "{"); idx >= 0 {
		endIdx := strings.LastIndex(response, "}")
		if endIdx > idx {
			jsonStr = response[idx : endIdx+1]
		}
	}

	var wire wireResponse
	if err := json.Unmarshal([]byte(jsonStr), &wire); err != nil {
		return nil, fmt.Errorf("unmarshal candidates JSON: %w", err)
	}

	candidates := make([]analysis.Candidate, 0, len(wire.Candidates))
	for _, entry := range wire.Candidates {
		candidateType := strings.ToLower(strings.TrimSpace(entry.Type))
		if candidateType == "" {
			continue
		}
		fields := entry.Fields
		if fields == nil {
			fields = map[string]string{}
		}
		candidates = append(candidates, analysis.Candidate{
			Type:       candidateType,
			Fields:     fields,
			Confidence: clamp(entry.Confidence),
		})
	}
	return candidates, nil
}

func clamp(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

var _ analysis.Analyzer = (*Analyzer)(nil)
