// Package extract turns analyzer candidates into typed concept and
// relationship candidates ready for consolidation. Matching is purely
// structural: the same analyzer output and record always produce the same
// candidates in the same order.
package extract

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/analysis"
	"github.com/mnemolabs/mnemo/pkg/memory"
)

const lowImportanceFactor = 0.8

// Candidate is a typed extraction ready for promotion. Exactly one of
// Concept and Relationship is set.
type Candidate struct {
	Concept      *memory.Concept
	Relationship *memory.Relationship
	Confidence   float64
}

// Config carries the extractor dependencies.
type Config struct {
	Analyzer analysis.Analyzer
	// Patterns defaults to DefaultPatterns when empty.
	Patterns []Pattern
	// Decay defaults to memory.DefaultDecayPolicy when zero.
	Decay  memory.DecayPolicy
	Logger *zap.Logger
}

// Extractor matches analyzer candidates against a pattern registry.
type Extractor struct {
	analyzer analysis.Analyzer
	patterns map[string]Pattern
	decay    memory.DecayPolicy
	logger   *zap.Logger
}

// NewExtractor validates the pattern registry up front so a bad pattern
// fails at construction rather than on the consolidation path.
func NewExtractor(c Config) (*Extractor, error) {
	if c.Analyzer == nil {
		return nil, fmt.Errorf("extract: analyzer is required")
	}

	registry := c.Patterns
	if len(registry) == 0 {
		registry = DefaultPatterns()
	}
	patterns := make(map[string]Pattern, len(registry))
	for _, p := range registry {
		if err := validatePattern(p); err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}
		if _, ok := patterns[p.Type]; ok {
			return nil, fmt.Errorf("extract: duplicate pattern type %q", p.Type)
		}
		patterns[p.Type] = p
	}

	decay := c.Decay
	if decay == (memory.DecayPolicy{}) {
		decay = memory.DefaultDecayPolicy()
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Extractor{
		analyzer: c.Analyzer,
		patterns: patterns,
		decay:    decay,
		logger:   logger,
	}, nil
}

// Extract runs the analyzer over the record content and matches every
// candidate against the registry. Candidates with unregistered types or
// failing validators are dropped, never errors. A relationship candidate is
// preceded in the output by entity candidates for both endpoints, so
// promoting the relationship always finds its concepts already upserted.
func (e *Extractor) Extract(ctx context.Context, rec memory.Record) ([]Candidate, error) {
	raw, err := e.analyzer.ExtractCandidates(ctx, rec.Content)
	if err != nil {
		return nil, fmt.Errorf("extract candidates: %w", err)
	}

	factor := e.importanceFactor(rec)
	out := make([]Candidate, 0, len(raw))
	for _, ac := range raw {
		pattern, ok := e.patterns[ac.Type]
		if !ok {
			e.logger.Debug("dropping candidate with unregistered type",
				zap.String("type", ac.Type),
			)
			continue
		}
		if err := pattern.match(ac.Fields); err != nil {
			e.logger.Debug("dropping candidate failing pattern",
				zap.String("type", ac.Type),
				zap.Error(err),
			)
			continue
		}

		confidence := ac.Confidence * pattern.Prior * factor
		domain := rec.Domain
		if override := ac.Fields["domain"]; override != "" {
			domain = override
		}

		if pattern.Type == RelationshipType {
			out = e.appendRelationship(out, ac, domain, confidence, factor)
			continue
		}
		out = append(out, conceptCandidate(pattern, ac.Fields, domain, confidence))
	}
	return out, nil
}

// Close releases the underlying analyzer.
func (e *Extractor) Close() error {
	return e.analyzer.Close()
}

// importanceFactor discounts candidates from records whose effective
// importance has decayed to 0.5 or below.
func (e *Extractor) importanceFactor(rec memory.Record) float64 {
	effective := e.decay.Effective(rec.Importance, rec.Age(time.Now().UTC()))
	if effective > 0.5 {
		return 1.0
	}
	return lowImportanceFactor
}

// appendRelationship emits the two endpoint entities ahead of the
// relationship itself. Endpoint keys come from the entity merge key, so the
// relationship resolves against exactly the concepts the entities create.
func (e *Extractor) appendRelationship(out []Candidate, ac analysis.Candidate, domain string, confidence, factor float64) []Candidate {
	entityPattern, ok := e.patterns[string(memory.ConceptEntity)]
	if !ok {
		e.logger.Debug("dropping relationship, no entity pattern registered for endpoints",
			zap.String("from", ac.Fields["from"]),
			zap.String("to", ac.Fields["to"]),
		)
		return out
	}

	endpointConfidence := ac.Confidence * entityPattern.Prior * factor
	from := endpointConcept(ac.Fields["from"], domain, endpointConfidence)
	to := endpointConcept(ac.Fields["to"], domain, endpointConfidence)

	rel := &memory.Relationship{
		FromID:     from.Key(),
		ToID:       to.Key(),
		Type:       ac.Fields["relation"],
		Domain:     domain,
		Confidence: confidence,
		Properties: extraProperties(ac.Fields, "from", "to", "relation", "domain"),
	}

	out = append(out, Candidate{Concept: from, Confidence: endpointConfidence})
	out = append(out, Candidate{Concept: to, Confidence: endpointConfidence})
	return append(out, Candidate{Relationship: rel, Confidence: confidence})
}

func conceptCandidate(pattern Pattern, fields map[string]string, domain string, confidence float64) Candidate {
	concept := &memory.Concept{
		Name:       fields["name"],
		Type:       memory.ConceptType(pattern.Type),
		Domain:     domain,
		Confidence: confidence,
		Properties: extraProperties(fields, "name", "domain"),
	}
	return Candidate{Concept: concept, Confidence: confidence}
}

func endpointConcept(name, domain string, confidence float64) *memory.Concept {
	return &memory.Concept{
		Name:       name,
		Type:       memory.ConceptEntity,
		Domain:     domain,
		Confidence: confidence,
	}
}

// extraProperties copies every field not consumed by the candidate struct
// itself into the properties map.
func extraProperties(fields map[string]string, consumed ...string) map[string]string {
	skip := make(map[string]struct{}, len(consumed))
	for _, key := range consumed {
		skip[key] = struct{}{}
	}
	var props map[string]string
	for key, value := range fields {
		if _, ok := skip[key]; ok {
			continue
		}
		if props == nil {
			props = make(map[string]string)
		}
		props[key] = value
	}
	return props
}
