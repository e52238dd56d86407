package eventstream

import "context"

// Publisher publishes memory lifecycle events to an event stream backend.
type Publisher interface {
	PublishRecordStored(ctx context.Context, event *RecordStoredEvent) error
	PublishConsolidationCompleted(ctx context.Context, event *ConsolidationCompletedEvent) error
	PublishAccessResolved(ctx context.Context, event *AccessResolvedEvent) error
	Close() error
}
