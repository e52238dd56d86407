package graph

import "errors"

var (
	// ErrNotFound is returned when a node or edge is not in the store.
	ErrNotFound = errors.New("graph element not found")

	// ErrConnection is returned when the graph backend fails.
	ErrConnection = errors.New("graph store connection failed")
)
