package memory

import (
	"errors"
	"fmt"
)

// ErrStorageUnavailable marks a transient failure of a backing store.
// Implementations wrap it with detail using %w; callers test with errors.Is
// and may retry with backoff. Malformed input is never reported through this
// sentinel.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ValidationError reports a malformed field on a record, concept,
// relationship or access request. Not retryable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// InvalidStateError reports an attempt to resolve a cross-domain request
// that already reached a terminal status.
type InvalidStateError struct {
	RequestID string
	Status    RequestStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("request %s already resolved to %s", e.RequestID, e.Status)
}
