// Package heuristic implements a deterministic rule-based analyzer. It is
// the default provider and needs no external service: the same input always
// yields the same candidates in the same order.
package heuristic

import (
	"context"
	"strings"
	"unicode"

	"github.com/mnemolabs/mnemo/pkg/analysis"
)

// Rule strength table.
const (
	propertyConfidence     = 0.8
	relationshipConfidence = 0.85
	entityConfidence       = 0.75
	eventConfidence        = 0.8
)

const maxEventName = 120

var propertyVerbs = wordSet(
	"prefer", "prefers", "like", "likes", "dislike", "dislikes",
	"love", "loves", "hate", "hates", "use", "uses", "want", "wants",
	"need", "needs", "enjoy", "enjoys", "is", "are", "has", "have",
)

var relationVerbs = wordSet(
	"knows", "manages", "mentors", "owns", "teaches", "reports",
	"supervises", "married",
)

var eventMarkers = wordSet(
	"happened", "occurred", "attended", "visited", "met",
	"yesterday", "today", "ago",
)

var stopwords = wordSet(
	"the", "a", "an", "of", "to", "in", "on", "at",
	"my", "our", "their", "his", "her", "its", "this", "that",
)

var pronouns = wordSet(
	"i", "we", "he", "she", "they", "it", "you",
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}

// Analyzer applies the fixed rule set to text.
type Analyzer struct{}

// NewAnalyzer creates a heuristic analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// ExtractCandidates runs every rule over every sentence. Rules fire in a
// fixed order per sentence, so output ordering is stable.
func (a *Analyzer) ExtractCandidates(ctx context.Context, text string) ([]analysis.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := make([]analysis.Candidate, 0)
	seenEntities := make(map[string]struct{})

	for _, sentence := range splitSentences(text) {
		tokens := tokenize(sentence)
		if len(tokens) == 0 {
			continue
		}
		candidates = append(candidates, propertyRule(tokens)...)
		candidates = append(candidates, relationshipRule(tokens)...)
		candidates = append(candidates, entityRule(tokens, seenEntities)...)
		candidates = append(candidates, eventRule(sentence, tokens)...)
	}

	return candidates, nil
}

// Close releases resources held by the analyzer.
func (a *Analyzer) Close() error {
	return nil
}

// propertyRule matches "<subject> <verb> <value>" statements such as
// "Customer prefers email over phone". The first matching verb wins.
func propertyRule(tokens []string) []analysis.Candidate {
	for i := 1; i < len(tokens)-1; i++ {
		verb := strings.ToLower(tokens[i])
		if _, ok := propertyVerbs[verb]; !ok {
			continue
		}
		subject := phrase(tokens[:i])
		value := phrase(tokens[i+1:])
		if subject == "" || value == "" {
			return nil
		}
		return []analysis.Candidate{{
			Type: "property",
			Fields: map[string]string{
				"name":    verb + " " + value,
				"subject": subject,
				"value":   value,
			},
			Confidence: propertyConfidence,
		}}
	}
	return nil
}

// relationshipRule matches "<from> <verb> <to>" with a known relation verb,
// such as "Alice manages Bob". A trailing preposition folds into the
// relation ("reports to"). Endpoint casing is preserved so the endpoints
// line up with the entity candidates for the same tokens.
func relationshipRule(tokens []string) []analysis.Candidate {
	for i := 1; i < len(tokens)-1; i++ {
		verb := strings.ToLower(tokens[i])
		if _, ok := relationVerbs[verb]; !ok {
			continue
		}

		relation := verb
		objectStart := i + 1
		switch strings.ToLower(tokens[objectStart]) {
		case "to", "with", "for":
			if objectStart+1 >= len(tokens) {
				return nil
			}
			relation = verb + " " + strings.ToLower(tokens[objectStart])
			objectStart++
		}

		from := phraseCased(tokens[:i])
		to := phraseCased(tokens[objectStart:])
		if from == "" || to == "" {
			return nil
		}
		return []analysis.Candidate{{
			Type: "relationship",
			Fields: map[string]string{
				"from":     from,
				"to":       to,
				"relation": relation,
			},
			Confidence: relationshipConfidence,
		}}
	}
	return nil
}

// entityRule lifts runs of capitalized tokens into entity candidates.
// Single-token runs that are common words (pronouns, verbs, markers) are
// skipped so sentence-initial capitalization does not fabricate entities.
func entityRule(tokens []string, seen map[string]struct{}) []analysis.Candidate {
	candidates := make([]analysis.Candidate, 0)

	i := 0
	for i < len(tokens) {
		if !isCapitalized(tokens[i]) {
			i++
			continue
		}
		start := i
		for i < len(tokens) && isCapitalized(tokens[i]) {
			i++
		}
		run := tokens[start:i]
		if len(run) == 1 && isCommonWord(run[0]) {
			continue
		}

		name := strings.Join(run, " ")
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		candidates = append(candidates, analysis.Candidate{
			Type:       "entity",
			Fields:     map[string]string{"name": name},
			Confidence: entityConfidence,
		})
	}

	return candidates
}

// eventRule marks sentences that carry a past-tense or temporal marker.
// At most one event candidate per sentence.
func eventRule(sentence string, tokens []string) []analysis.Candidate {
	for _, token := range tokens {
		if _, ok := eventMarkers[strings.ToLower(token)]; !ok {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(sentence))
		if runes := []rune(name); len(runes) > maxEventName {
			name = string(runes[:maxEventName])
		}
		return []analysis.Candidate{{
			Type:       "event",
			Fields:     map[string]string{"name": name},
			Confidence: eventConfidence,
		}}
	}
	return nil
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == ';' || r == '\n'
	})
}

func tokenize(sentence string) []string {
	fields := strings.Fields(sentence)
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		token := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// phrase joins tokens into a lowercased phrase with stopwords removed.
// Pronouns stay: "I prefer aisle seats" keeps its subject.
func phrase(tokens []string) string {
	kept := make([]string, 0, len(tokens))
	for _, token := range tokens {
		lower := strings.ToLower(token)
		if _, ok := stopwords[lower]; ok {
			continue
		}
		kept = append(kept, lower)
	}
	return strings.Join(kept, " ")
}

// phraseCased keeps original casing, only dropping stopwords.
func phraseCased(tokens []string) string {
	kept := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, ok := stopwords[strings.ToLower(token)]; ok {
			continue
		}
		kept = append(kept, token)
	}
	return strings.Join(kept, " ")
}

func isCapitalized(token string) bool {
	for _, r := range token {
		return unicode.IsUpper(r)
	}
	return false
}

func isCommonWord(token string) bool {
	lower := strings.ToLower(token)
	if _, ok := stopwords[lower]; ok {
		return true
	}
	if _, ok := pronouns[lower]; ok {
		return true
	}
	if _, ok := propertyVerbs[lower]; ok {
		return true
	}
	if _, ok := relationVerbs[lower]; ok {
		return true
	}
	if _, ok := eventMarkers[lower]; ok {
		return true
	}
	return false
}

var _ analysis.Analyzer = (*Analyzer)(nil)
