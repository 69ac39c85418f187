package driven

import (
	"context"
	"time"
)

// PollerState is the poller's persisted progress for one page.
type PollerState struct {
	// LastCheckedRevisionID is the newest revision id a completed check
	// has seen.
	LastCheckedRevisionID int64

	// PreviousVisitRevisionID is the revision displayed during the
	// viewer's previous visit, zero when unknown.
	PreviousVisitRevisionID int64

	// PreviousVisitTime is when that visit happened.
	PreviousVisitTime time.Time
}

// PollerStateStore persists poller progress across sessions.
type PollerStateStore interface {
	// Get returns the state for a page. Returns nil and no error when no
	// state was recorded yet.
	Get(ctx context.Context, pageID string) (*PollerState, error)

	// Save stores the state for a page.
	Save(ctx context.Context, pageID string, state PollerState) error
}
