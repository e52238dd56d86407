package vector

import "errors"

var (
	// ErrNotFound is returned when an entry is not found in the index.
	ErrNotFound = errors.New("entry not found")

	// ErrDimension is returned when an embedding's width does not match the
	// index.
	ErrDimension = errors.New("embedding dimension mismatch")

	// ErrConnection is returned when the index backend fails.
	ErrConnection = errors.New("vector index connection failed")
)
