package driving

import (
	"context"

	"github.com/jwbth/talkwatch/internal/core/domain"
)

// ThreadTracker owns thread interval bookkeeping over the displayed
// comment list.
type ThreadTracker interface {
	// Reload replaces the underlying comment list and rebuilds every
	// thread. Roots whose structure is malformed are skipped, not fatal.
	Reload(comments []domain.Comment)

	// Thread returns the thread rooted at a comment.
	Thread(rootID string) (*domain.Thread, error)

	// Collapse collapses a thread. Idempotent.
	Collapse(ctx context.Context, rootID string) (*domain.CollapseNote, error)

	// Expand expands a thread and records the manual-expansion flag.
	// Idempotent.
	Expand(ctx context.Context, rootID string) error

	// AutoCollapse collapses threads at or above the size threshold,
	// honouring previously recorded manual expansions.
	AutoCollapse(ctx context.Context, threshold int) ([]domain.CollapseNote, error)

	// Visible reports whether a comment is currently hidden by any
	// collapsed thread.
	Visible(commentID string) bool

	// StepFrom maps a drag delta in pixels to the sibling thread reached
	// after crossing that many boundaries from the origin root.
	StepFrom(rootID string, delta float64) (string, error)
}
