package memory

import "strings"

// ConceptType classifies a semantic concept. The set is closed; analyzer
// candidates proposing any other type are dropped before extraction.
type ConceptType string

const (
	ConceptEntity   ConceptType = "entity"
	ConceptAction   ConceptType = "action"
	ConceptProperty ConceptType = "property"
	ConceptEvent    ConceptType = "event"
	ConceptAbstract ConceptType = "abstract"
)

// IsValid reports whether t is one of the closed concept types.
func (t ConceptType) IsValid() bool {
	switch t {
	case ConceptEntity, ConceptAction, ConceptProperty, ConceptEvent, ConceptAbstract:
		return true
	}
	return false
}

// ConceptTypes returns every valid concept type in stable order.
func ConceptTypes() []ConceptType {
	return []ConceptType{ConceptEntity, ConceptAction, ConceptProperty, ConceptEvent, ConceptAbstract}
}

// Concept is a consolidated semantic fact. Concepts are unique per
// (Name, Type, Domain); upserting an existing key merges instead of
// duplicating.
type Concept struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Type       ConceptType       `json:"type"`
	Domain     string            `json:"domain"`
	Confidence float64           `json:"confidence"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Key returns the merge key identifying this concept within the semantic
// layer. Compared for equality only, never parsed.
func (c Concept) Key() string {
	return string(c.Type) + "|" + c.Domain + "|" + c.Name
}

// Validate reports whether the concept is well formed enough to upsert.
func (c Concept) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !c.Type.IsValid() {
		return &ValidationError{Field: "type", Reason: "unknown concept type " + string(c.Type)}
	}
	if strings.TrimSpace(c.Domain) == "" {
		return &ValidationError{Field: "domain", Reason: "must not be empty"}
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return &ValidationError{Field: "confidence", Reason: "must be within [0, 1]"}
	}
	return nil
}

// Clone returns a deep copy of the concept.
func (c Concept) Clone() Concept {
	out := c
	if c.Properties != nil {
		out.Properties = make(map[string]string, len(c.Properties))
		for k, v := range c.Properties {
			out.Properties[k] = v
		}
	}
	return out
}

// Relationship is a directed, typed edge between two concepts. A
// bidirectional association is expressed as two relationships. Relationships
// merge per (FromID, ToID, Type).
type Relationship struct {
	ID         string            `json:"id"`
	FromID     string            `json:"from_id"`
	ToID       string            `json:"to_id"`
	Type       string            `json:"type"`
	Domain     string            `json:"domain"`
	Confidence float64           `json:"confidence"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Key returns the merge key identifying this relationship within the
// semantic layer.
func (r Relationship) Key() string {
	return r.FromID + "|" + r.ToID + "|" + r.Type
}

// Validate reports whether the relationship is well formed enough to upsert.
func (r Relationship) Validate() error {
	if r.FromID == "" {
		return &ValidationError{Field: "from_id", Reason: "must not be empty"}
	}
	if r.ToID == "" {
		return &ValidationError{Field: "to_id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(r.Type) == "" {
		return &ValidationError{Field: "type", Reason: "must not be empty"}
	}
	if strings.TrimSpace(r.Domain) == "" {
		return &ValidationError{Field: "domain", Reason: "must not be empty"}
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return &ValidationError{Field: "confidence", Reason: "must be within [0, 1]"}
	}
	return nil
}

// Clone returns a deep copy of the relationship.
func (r Relationship) Clone() Relationship {
	out := r
	if r.Properties != nil {
		out.Properties = make(map[string]string, len(r.Properties))
		for k, v := range r.Properties {
			out.Properties[k] = v
		}
	}
	return out
}
