// Package access enforces domain boundaries. Same-domain operations are
// always authorized; crossing a boundary requires an approved
// CrossDomainRequest. Absent approval the answer is deny, and deny is an
// outcome, never an error.
package access

import (
	"context"
	"time"

	"github.com/mnemolabs/mnemo/pkg/memory"
)

// Store persists cross-domain requests.
type Store interface {
	// CreatePending inserts a pending request, or returns the existing
	// pending request for the same (source, target, operation) tuple.
	CreatePending(ctx context.Context, req memory.CrossDomainRequest) (memory.CrossDomainRequest, error)

	// Get returns the request with the given ID.
	Get(ctx context.Context, id string) (memory.CrossDomainRequest, error)

	// LatestApproved returns the most recently approved request for the
	// tuple, or ErrNotFound.
	LatestApproved(ctx context.Context, source, target string, op memory.Operation) (memory.CrossDomainRequest, error)

	// Transition atomically moves a pending request to a terminal status.
	// Returns ErrNotFound for unknown IDs and memory.InvalidStateError when
	// the request is already terminal.
	Transition(ctx context.Context, id string, status memory.RequestStatus, resolvedAt time.Time) (memory.CrossDomainRequest, error)

	// List returns all requests ordered by creation time.
	List(ctx context.Context) ([]memory.CrossDomainRequest, error)

	Close() error
}
