// Package analysis defines the content analysis collaborator that turns raw
// memory content into typed knowledge candidates.
package analysis

import "context"

// Candidate is one piece of structured knowledge proposed by an analyzer.
// Type names the candidate kind (entity, property, action, event, abstract,
// relationship) and Fields carries its extracted attributes.
type Candidate struct {
	Type       string
	Fields     map[string]string
	Confidence float64
}

// Analyzer extracts knowledge candidates from raw text.
type Analyzer interface {
	ExtractCandidates(ctx context.Context, text string) ([]Candidate, error)
	Close() error
}
