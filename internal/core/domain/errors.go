package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStaleRevision indicates an in-flight check was computed against a
	// revision that is no longer the displayed one. The result must be
	// discarded, not committed.
	ErrStaleRevision = errors.New("stale revision")

	// ErrMalformedTree indicates the comment list violated a structural
	// assumption the thread tracker relies on (missing parent, index out
	// of range). Construction of that one thread is skipped.
	ErrMalformedTree = errors.New("malformed comment tree")

	// ErrNoRevision indicates the revision source has no revision to serve.
	ErrNoRevision = errors.New("no revision available")

	// ErrRateLimited indicates the content API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrCheckInProgress indicates a poll check is already running.
	ErrCheckInProgress = errors.New("check in progress")
)
