package driving

import (
	"context"

	"github.com/jwbth/talkwatch/internal/core/domain"
)

// PollerPhase names the poller's state machine states.
type PollerPhase string

// Poller phases.
const (
	PhaseIdle         PollerPhase = "idle"
	PhaseChecking     PollerPhase = "checking"
	PhaseBackgrounded PollerPhase = "backgrounded"
)

// Poller drives periodic revision checks for one watched page.
type Poller interface {
	// Start runs the poll loop. Blocks until Stop is called or the
	// context is cancelled.
	Start(ctx context.Context) error

	// Stop gracefully shuts the loop down, waiting for an in-flight
	// check to finish.
	Stop() error

	// CheckNow runs one check cycle immediately.
	// Returns ErrCheckInProgress when a check is already running.
	CheckNow(ctx context.Context) error

	// SetHidden switches between the foreground and backgrounded
	// intervals. Un-hiding triggers an immediate check.
	SetHidden(hidden bool)

	// Status returns the poller's current status.
	Status() PollerStatus
}

// PollerStatus is a snapshot of the poller's observable state.
type PollerStatus struct {
	Phase                 PollerPhase
	DisplayedRevisionID   int64
	LastCheckedRevisionID int64
	ChecksRun             int
	LastError             string
}

// EventSink consumes the classified results of a check. Implementations
// update UI state, trigger notifications, or persist seen markers; a nil
// method receiver is never passed.
type EventSink interface {
	// Check fires at the start of every check that found a newer
	// revision.
	Check(revisionID int64)

	// SectionsUpdate delivers the new snapshot's sections.
	SectionsUpdate(sections []domain.Section)

	// NewChanges delivers the raw diff list: one entry per current
	// comment whose classification is not unchanged, plus unchanged
	// entries for completeness of the first change after acknowledgment.
	NewChanges(changes []domain.CommentChange)

	// CommentsUpdate delivers genuinely new comments.
	CommentsUpdate(update domain.NewComments)
}
