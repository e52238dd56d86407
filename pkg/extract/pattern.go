package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mnemolabs/mnemo/pkg/memory"
)

// ValidatorKind selects one of the closed validator variants. There are no
// executable predicates; every variant is checked structurally, which keeps
// pattern definitions serializable and extraction deterministic.
type ValidatorKind int

const (
	ValidatorNonEmpty ValidatorKind = iota
	ValidatorMaxLen
	ValidatorOneOf
	ValidatorLowerCase
)

// Validator is a closed tagged variant. OneOf is read only for
// ValidatorOneOf and MaxLen only for ValidatorMaxLen.
type Validator struct {
	Kind   ValidatorKind
	OneOf  []string
	MaxLen int
}

// Field names a required candidate field and its validators.
type Field struct {
	Name       string
	Validators []Validator
}

// Pattern maps an analyzer candidate type onto a promotion template. A
// candidate matches iff every required field is present and passes its
// validators.
type Pattern struct {
	Type     string
	Prior    float64
	Required []Field
}

// RelationshipType is the pattern type producing relationships instead of
// concepts.
const RelationshipType = "relationship"

const defaultMaxFieldLen = 200

// DefaultPatterns returns the standard registry, one pattern per concept
// type plus relationships.
func DefaultPatterns() []Pattern {
	standard := func() []Validator {
		return []Validator{
			{Kind: ValidatorNonEmpty},
			{Kind: ValidatorMaxLen, MaxLen: defaultMaxFieldLen},
		}
	}
	relation := func() []Validator {
		return append(standard(), Validator{Kind: ValidatorLowerCase})
	}

	return []Pattern{
		{Type: string(memory.ConceptEntity), Prior: 0.9, Required: []Field{
			{Name: "name", Validators: standard()},
		}},
		{Type: string(memory.ConceptProperty), Prior: 0.85, Required: []Field{
			{Name: "name", Validators: standard()},
			{Name: "subject", Validators: standard()},
		}},
		{Type: string(memory.ConceptAction), Prior: 0.8, Required: []Field{
			{Name: "name", Validators: standard()},
		}},
		{Type: string(memory.ConceptEvent), Prior: 0.8, Required: []Field{
			{Name: "name", Validators: standard()},
		}},
		{Type: string(memory.ConceptAbstract), Prior: 0.6, Required: []Field{
			{Name: "name", Validators: standard()},
		}},
		{Type: RelationshipType, Prior: 0.75, Required: []Field{
			{Name: "from", Validators: standard()},
			{Name: "to", Validators: standard()},
			{Name: "relation", Validators: relation()},
		}},
	}
}

// match reports whether the candidate fields satisfy the pattern.
func (p Pattern) match(fields map[string]string) error {
	for _, field := range p.Required {
		value, ok := fields[field.Name]
		if !ok {
			return fmt.Errorf("missing field %q", field.Name)
		}
		for _, validator := range field.Validators {
			if err := check(validator, value); err != nil {
				return fmt.Errorf("field %q: %w", field.Name, err)
			}
		}
	}
	return nil
}

func check(v Validator, value string) error {
	switch v.Kind {
	case ValidatorNonEmpty:
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("must not be empty")
		}
	case ValidatorMaxLen:
		if utf8.RuneCountInString(value) > v.MaxLen {
			return fmt.Errorf("longer than %d characters", v.MaxLen)
		}
	case ValidatorOneOf:
		for _, allowed := range v.OneOf {
			if value == allowed {
				return nil
			}
		}
		return fmt.Errorf("%q not in %v", value, v.OneOf)
	case ValidatorLowerCase:
		if value != strings.ToLower(value) {
			return fmt.Errorf("must be lowercase")
		}
	default:
		return fmt.Errorf("unknown validator kind %d", v.Kind)
	}
	return nil
}

func validatePattern(p Pattern) error {
	if p.Type != RelationshipType && !memory.ConceptType(p.Type).IsValid() {
		return fmt.Errorf("pattern type %q is neither a concept type nor %q", p.Type, RelationshipType)
	}
	if p.Prior <= 0 || p.Prior > 1 {
		return fmt.Errorf("pattern %q prior must be within (0, 1]", p.Type)
	}
	for _, field := range p.Required {
		if field.Name == "" {
			return fmt.Errorf("pattern %q has a required field without a name", p.Type)
		}
	}
	return nil
}
