package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mnemolabs/mnemo/pkg/memory"
)

// Config tunes the controller.
type Config struct {
	// ApprovalTTL bounds how long an approval stays valid. Zero disables
	// expiry.
	ApprovalTTL time.Duration
}

// Controller answers authorization questions and manages the request
// lifecycle on top of a Store.
type Controller struct {
	store Store
	ttl   time.Duration
}

// NewController creates a controller over the given store.
func NewController(store Store, c Config) (*Controller, error) {
	if store == nil {
		return nil, fmt.Errorf("access controller requires a store")
	}
	return &Controller{store: store, ttl: c.ApprovalTTL}, nil
}

// AuthorizeRead reports whether requesterDomain may read records stored in
// recordDomain.
func (c *Controller) AuthorizeRead(ctx context.Context, requesterDomain, recordDomain string) (bool, error) {
	return c.authorize(ctx, requesterDomain, recordDomain, memory.OperationRead)
}

// AuthorizeWrite reports whether facts originating in sourceDomain may be
// written into targetDomain.
func (c *Controller) AuthorizeWrite(ctx context.Context, sourceDomain, targetDomain string) (bool, error) {
	return c.authorize(ctx, sourceDomain, targetDomain, memory.OperationWrite)
}

func (c *Controller) authorize(ctx context.Context, source, target string, op memory.Operation) (bool, error) {
	if source == target {
		return true, nil
	}

	approved, err := c.store.LatestApproved(ctx, source, target, op)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if c.ttl > 0 && approved.ResolvedAt != nil && time.Since(*approved.ResolvedAt) > c.ttl {
		return false, nil
	}
	return true, nil
}

// RequestAccess submits a pending cross-domain request. Submitting the same
// (source, target, operation) tuple while a pending request exists returns
// that request instead of creating a duplicate.
func (c *Controller) RequestAccess(ctx context.Context, source, target, operation, justification string) (memory.CrossDomainRequest, error) {
	if source == "" {
		return memory.CrossDomainRequest{}, &memory.ValidationError{Field: "source_domain", Reason: "must not be empty"}
	}
	if target == "" {
		return memory.CrossDomainRequest{}, &memory.ValidationError{Field: "target_domain", Reason: "must not be empty"}
	}
	if source == target {
		return memory.CrossDomainRequest{}, &memory.ValidationError{Field: "target_domain", Reason: "must differ from source domain"}
	}
	op := memory.Operation(operation)
	if !op.IsValid() {
		return memory.CrossDomainRequest{}, &memory.ValidationError{Field: "operation", Reason: fmt.Sprintf("unknown operation %q", operation)}
	}
	if justification == "" {
		return memory.CrossDomainRequest{}, &memory.ValidationError{Field: "justification", Reason: "must not be empty"}
	}

	req := memory.CrossDomainRequest{
		ID:            uuid.NewString(),
		SourceDomain:  source,
		TargetDomain:  target,
		Operation:     op,
		Status:        memory.StatusPending,
		Justification: justification,
		CreatedAt:     time.Now().UTC(),
	}
	return c.store.CreatePending(ctx, req)
}

// Resolve moves a pending request to approved or denied. Resolving an
// already-terminal request fails with memory.InvalidStateError.
func (c *Controller) Resolve(ctx context.Context, requestID string, approve bool) (memory.CrossDomainRequest, error) {
	status := memory.StatusDenied
	if approve {
		status = memory.StatusApproved
	}
	return c.store.Transition(ctx, requestID, status, time.Now().UTC())
}

// List returns every stored request ordered by creation time.
func (c *Controller) List(ctx context.Context) ([]memory.CrossDomainRequest, error) {
	return c.store.List(ctx)
}

// Close releases the underlying store.
func (c *Controller) Close() error {
	return c.store.Close()
}
