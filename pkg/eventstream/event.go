package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/mnemolabs/mnemo/pkg/consolidation"
	"github.com/mnemolabs/mnemo/pkg/memory"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeRecordStored is emitted after an episodic record is stored.
	EventTypeRecordStored = "mnemo.record.stored"

	// EventTypeConsolidationCompleted is emitted after a consolidation run
	// finishes.
	EventTypeConsolidationCompleted = "mnemo.consolidation.completed"

	// EventTypeAccessResolved is emitted when a cross-domain request reaches
	// a terminal status.
	EventTypeAccessResolved = "mnemo.access.resolved"
)

// RecordStoredEvent is a transport-neutral payload for a stored record.
type RecordStoredEvent struct {
	SchemaVersion int           `json:"schema_version"`
	EventType     string        `json:"event_type"`
	EventID       string        `json:"event_id"`
	EmittedAt     time.Time     `json:"emitted_at"`
	Record        memory.Record `json:"record"`
}

// NewRecordStoredEvent stamps the envelope around a stored record.
func NewRecordStoredEvent(rec memory.Record) *RecordStoredEvent {
	return &RecordStoredEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeRecordStored,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Record:        rec,
	}
}

// ConsolidationCompletedEvent carries the summary of a finished run.
type ConsolidationCompletedEvent struct {
	SchemaVersion int                   `json:"schema_version"`
	EventType     string                `json:"event_type"`
	EventID       string                `json:"event_id"`
	EmittedAt     time.Time             `json:"emitted_at"`
	Summary       consolidation.Summary `json:"summary"`
}

// NewConsolidationCompletedEvent stamps the envelope around a run summary.
func NewConsolidationCompletedEvent(summary consolidation.Summary) *ConsolidationCompletedEvent {
	return &ConsolidationCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeConsolidationCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Summary:       summary,
	}
}

// AccessResolvedEvent carries a cross-domain request that just went terminal.
type AccessResolvedEvent struct {
	SchemaVersion int                       `json:"schema_version"`
	EventType     string                    `json:"event_type"`
	EventID       string                    `json:"event_id"`
	EmittedAt     time.Time                 `json:"emitted_at"`
	Request       memory.CrossDomainRequest `json:"request"`
}

// NewAccessResolvedEvent stamps the envelope around a resolved request.
func NewAccessResolvedEvent(req memory.CrossDomainRequest) *AccessResolvedEvent {
	return &AccessResolvedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeAccessResolved,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Request:       req,
	}
}
