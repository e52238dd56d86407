package testutils

import (
	"time"

	"github.com/google/uuid"

	"github.com/mnemolabs/mnemo/pkg/memory"
)

// NewTestRecord creates a valid episodic record for testing.
func NewTestRecord(domain, content string, importance float64) memory.Record {
	return memory.Record{
		ID:         uuid.NewString(),
		Content:    content,
		Kind:       memory.KindEpisodic,
		Importance: importance,
		Domain:     domain,
		Context:    map[string]string{memory.ContextSource: "test"},
		CreatedAt:  time.Now().UTC(),
	}
}
