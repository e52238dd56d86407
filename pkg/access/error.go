package access

import "errors"

var (
	// ErrNotFound indicates no request matches the lookup.
	ErrNotFound = errors.New("access request not found")

	// ErrConnection indicates the request store is unreachable.
	ErrConnection = errors.New("access store connection failed")
)
