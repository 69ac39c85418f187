package domain

// Thread is the structural range a root comment and its descendants occupy
// in the displayed comment list. Threads are derived state: they are
// rebuilt whenever the underlying comment list is replaced.
type Thread struct {
	// RootID is the thread's root comment id.
	RootID string

	// CommentIDs lists the root and every descendant inside the logical
	// range, in document order.
	CommentIDs []string

	// StartIndex is the root comment's index.
	StartIndex int

	// LogicalEndIndex is the index of the last descendant by document
	// order, including replies outdented elsewhere on the page.
	LogicalEndIndex int

	// VisualEndIndex is the index of the last in-place descendant.
	// Outdenting can render a reply outside its logical parent's visual
	// nesting, in which case VisualEndIndex < LogicalEndIndex.
	VisualEndIndex int

	// Collapsed reports whether the thread is currently collapsed.
	Collapsed bool
}

// Split reports whether outdenting pushed the logical end past the visual
// end.
func (t *Thread) Split() bool {
	return t.LogicalEndIndex != t.VisualEndIndex
}

// Size returns the number of comments in the thread, root included.
func (t *Thread) Size() int {
	return len(t.CommentIDs)
}

// CollapseNote is the placeholder standing in for a collapsed thread's
// range. The note anchors at the visual position even when the collapsed
// range extends logically past it.
type CollapseNote struct {
	RootID      string
	AnchorIndex int
	Hidden      int
}
