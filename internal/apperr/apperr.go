// Package apperr holds cross-cutting sentinel errors shared by packages
// that would otherwise each redeclare the same two conditions.
package apperr

import "errors"

var (
	// ErrNotFound indicates a requested entity doesn't exist: an unknown
	// user in the role store, a session no longer in the registry.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates an optimistic concurrency check failed.
	ErrConflict = errors.New("conflict")
)
