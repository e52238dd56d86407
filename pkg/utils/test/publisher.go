package testutils

import (
	"context"

	"github.com/mnemolabs/mnemo/pkg/eventstream"
)

// CapturingPublisher is a test publisher that records every event it is
// handed and can be forced to fail.
type CapturingPublisher struct {
	// RecordStored accumulates record stored events in publish order.
	RecordStored []*eventstream.RecordStoredEvent

	// ConsolidationCompleted accumulates consolidation summary events.
	ConsolidationCompleted []*eventstream.ConsolidationCompletedEvent

	// AccessResolved accumulates access resolution events.
	AccessResolved []*eventstream.AccessResolvedEvent

	// Err is returned by every publish method when set.
	Err error

	// Closed flips to true once Close is called.
	Closed bool
}

func NewCapturingPublisher() *CapturingPublisher {
	return &CapturingPublisher{}
}

func (p *CapturingPublisher) PublishRecordStored(_ context.Context, event *eventstream.RecordStoredEvent) error {
	if p.Err != nil {
		return p.Err
	}
	p.RecordStored = append(p.RecordStored, event)
	return nil
}

func (p *CapturingPublisher) PublishConsolidationCompleted(_ context.Context, event *eventstream.ConsolidationCompletedEvent) error {
	if p.Err != nil {
		return p.Err
	}
	p.ConsolidationCompleted = append(p.ConsolidationCompleted, event)
	return nil
}

func (p *CapturingPublisher) PublishAccessResolved(_ context.Context, event *eventstream.AccessResolvedEvent) error {
	if p.Err != nil {
		return p.Err
	}
	p.AccessResolved = append(p.AccessResolved, event)
	return nil
}

func (p *CapturingPublisher) Close() error {
	p.Closed = true
	return nil
}
