package archivist

import (
	"errors"
)

var (
	// ErrNothingToCommit is returned when committing an empty archivist.
	ErrNothingToCommit = errors.New("nothing to commit")

	// ErrNoCommitParents is returned when committing an archivist without commit parents.
	ErrNoCommitParents = errors.New("no commit parents configured")

	// ErrParentNotFound is returned when a configured parent does not resolve and every parent
	// is required.
	ErrParentNotFound = errors.New("parent archivist not found")

	// ErrMissingPayload is returned when an insert query references a payload it does not carry.
	ErrMissingPayload = errors.New("referenced payload is not attached")
)
