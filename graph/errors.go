package graph

import "errors"

var (
	// ErrMissingRoot is returned when a subgraph root has no vertex.
	ErrMissingRoot = errors.New("graph: root not present in data")

	// ErrEntityNotFound is returned when an entity ID is unknown to a Store.
	ErrEntityNotFound = errors.New("graph: entity not found")
)
