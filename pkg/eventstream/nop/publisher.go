package nop

import (
	"context"

	"github.com/mnemolabs/mnemo/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishRecordStored validates input and otherwise does nothing.
func (p *Publisher) PublishRecordStored(_ context.Context, event *eventstream.RecordStoredEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return nil
}

// PublishConsolidationCompleted validates input and otherwise does nothing.
func (p *Publisher) PublishConsolidationCompleted(_ context.Context, event *eventstream.ConsolidationCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return nil
}

// PublishAccessResolved validates input and otherwise does nothing.
func (p *Publisher) PublishAccessResolved(_ context.Context, event *eventstream.AccessResolvedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
