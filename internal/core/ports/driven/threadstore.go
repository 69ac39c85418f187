package driven

import "context"

// ThreadFlagStore persists the set of threads the user manually expanded,
// keyed by page id and root comment id. Auto-collapse-on-load must not
// re-collapse a thread recorded here.
type ThreadFlagStore interface {
	// IsManuallyExpanded reports whether the flag is set for a root.
	IsManuallyExpanded(ctx context.Context, pageID, commentID string) (bool, error)

	// SetManuallyExpanded sets or clears the flag for a root.
	SetManuallyExpanded(ctx context.Context, pageID, commentID string, expanded bool) error
}
