package memory

import "time"

// RequestStatus is the lifecycle state of a cross-domain access request.
// Pending is the only state that can transition; approved and denied are
// terminal and immutable.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusDenied   RequestStatus = "denied"
)

// IsTerminal reports whether the status can no longer change.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusDenied
}

// Operation names the kind of cross-domain access being requested.
type Operation string

const (
	OperationRead  Operation = "read"
	OperationWrite Operation = "write"
)

// IsValid reports whether op is a known operation.
func (op Operation) IsValid() bool {
	return op == OperationRead || op == OperationWrite
}

// CrossDomainRequest records one domain asking to read from or write into
// another. Requests start pending and are resolved exactly once.
type CrossDomainRequest struct {
	ID            string        `json:"id"`
	SourceDomain  string        `json:"source_domain"`
	TargetDomain  string        `json:"target_domain"`
	Operation     Operation     `json:"operation"`
	Status        RequestStatus `json:"status"`
	Justification string        `json:"justification"`
	CreatedAt     time.Time     `json:"created_at"`
	ResolvedAt    *time.Time    `json:"resolved_at,omitempty"`
}

// Clone returns a copy of the request.
func (r CrossDomainRequest) Clone() CrossDomainRequest {
	out := r
	if r.ResolvedAt != nil {
		at := *r.ResolvedAt
		out.ResolvedAt = &at
	}
	return out
}
