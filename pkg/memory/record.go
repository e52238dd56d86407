// Package memory defines the core types shared across the mnemo engine:
// episodic records, semantic concepts and relationships, cross-domain access
// requests, the importance decay policy, and the error taxonomy every layer
// reports through.
package memory

import (
	"strings"
	"time"
)

// Kind discriminates the two memory layers a record can belong to.
type Kind string

const (
	KindEpisodic Kind = "episodic"
	KindSemantic Kind = "semantic"
)

// Context keys every episodic record must carry. The domain key is injected
// from Record.Domain at store time; the source key is caller-supplied and
// mandatory.
const (
	ContextSource = "source"
	ContextDomain = "domain"
)

// Record is a single episodic memory: one raw experience plus the metadata
// needed to retrieve and consolidate it. ID and Domain are immutable once
// stored. Moving a record to another domain means storing a new record under
// an approved cross-domain grant, never mutating this one.
type Record struct {
	ID             string            `json:"id"`
	Content        string            `json:"content"`
	Kind           Kind              `json:"kind"`
	Importance     float64           `json:"importance"`
	Domain         string            `json:"domain"`
	Context        map[string]string `json:"context"`
	CreatedAt      time.Time         `json:"created_at"`
	Consolidated   bool              `json:"consolidated"`
	ConsolidatedAt *time.Time        `json:"consolidated_at,omitempty"`
}

// Validate reports whether the record is well formed enough to store.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if strings.TrimSpace(r.Domain) == "" {
		return &ValidationError{Field: "domain", Reason: "must not be empty"}
	}
	if r.Importance < 0 || r.Importance > 1 {
		return &ValidationError{Field: "importance", Reason: "must be within [0, 1]"}
	}
	if r.Context[ContextSource] == "" {
		return &ValidationError{Field: "context." + ContextSource, Reason: "must be present"}
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (r Record) Clone() Record {
	out := r
	if r.Context != nil {
		out.Context = make(map[string]string, len(r.Context))
		for k, v := range r.Context {
			out.Context[k] = v
		}
	}
	if r.ConsolidatedAt != nil {
		at := *r.ConsolidatedAt
		out.ConsolidatedAt = &at
	}
	return out
}

// Age returns how old the record is at the given instant.
func (r Record) Age(now time.Time) time.Duration {
	if r.CreatedAt.IsZero() || now.Before(r.CreatedAt) {
		return 0
	}
	return now.Sub(r.CreatedAt)
}
