package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jwbth/talkwatch/internal/core/domain"
	"github.com/jwbth/talkwatch/internal/core/ports/driven"
	"github.com/jwbth/talkwatch/internal/core/ports/driving"
	"github.com/jwbth/talkwatch/internal/logger"
)

// Drag navigation thresholds: movement inside the dead zone selects
// nothing, then every stepSize pixels crosses one thread boundary.
const (
	dragDeadZone = 20.0
	dragStepSize = 64.0
)

// Ensure Tracker implements the interface.
var _ driving.ThreadTracker = (*Tracker)(nil)

// Tracker owns thread interval bookkeeping over the displayed comment
// list: per root, the contiguous logical range the thread occupies, its
// visual end when outdenting splits the two, and collapse state.
type Tracker struct {
	pageID string
	flags  driven.ThreadFlagStore

	mu       sync.Mutex
	comments []domain.Comment
	byID     map[string]*domain.Comment
	threads  map[string]*domain.Thread
	// hidden counts, per comment id, how many collapsed threads cover it.
	hidden map[string]int
	// manuallyExpanded tracks expansions made this session, merged with
	// the persisted flags.
	manuallyExpanded map[string]bool
}

// NewTracker creates a tracker for one page. flags may be nil, in which
// case manual expansions are only tracked for the session.
func NewTracker(pageID string, flags driven.ThreadFlagStore) *Tracker {
	return &Tracker{
		pageID:           pageID,
		flags:            flags,
		threads:          make(map[string]*domain.Thread),
		hidden:           make(map[string]int),
		manuallyExpanded: make(map[string]bool),
	}
}

// Reload replaces the underlying comment list and rebuilds every thread.
// All collapse state is dropped: threads are derived state and do not
// survive a tree replacement. Roots with malformed structure are skipped
// with a log line, a degraded rendering rather than a fatal error.
func (t *Tracker) Reload(comments []domain.Comment) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.comments = comments
	t.byID = make(map[string]*domain.Comment, len(comments))
	for i := range comments {
		if comments[i].ID != "" {
			t.byID[comments[i].ID] = &comments[i]
		}
	}
	t.threads = make(map[string]*domain.Thread, len(comments))
	t.hidden = make(map[string]int)

	for i := range comments {
		if comments[i].ID == "" {
			continue
		}
		thread, err := t.buildThread(&comments[i])
		if err != nil {
			logger.Warn("skipping thread %s: %v", comments[i].ID, err)
			continue
		}
		t.threads[comments[i].ID] = thread
	}
}

// Thread returns the thread rooted at a comment.
func (t *Tracker) Thread(rootID string) (*domain.Thread, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	thread, ok := t.threads[rootID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return thread, nil
}

// Collapse collapses a thread. Collapsing an already-collapsed thread is a
// no-op: no state change, no duplicate placeholder. The collapsed range is
// the logical one; the returned note anchors at the visual position.
func (t *Tracker) Collapse(_ context.Context, rootID string) (*domain.CollapseNote, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	thread, ok := t.threads[rootID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if thread.Collapsed {
		return nil, nil
	}
	thread.Collapsed = true
	// The note anchors where the thread visually ended before its
	// members were hidden.
	anchor := thread.VisualEndIndex
	for _, id := range thread.CommentIDs {
		if id == rootID {
			continue
		}
		t.hidden[id]++
	}
	t.recomputeVisualEnds()

	return &domain.CollapseNote{
		RootID:      rootID,
		AnchorIndex: anchor,
		Hidden:      len(thread.CommentIDs) - 1,
	}, nil
}

// Expand expands a thread and records the manual-expansion flag so a later
// auto-collapse pass leaves it alone. Expanding a never-collapsed thread
// is a no-op besides the flag.
func (t *Tracker) Expand(ctx context.Context, rootID string) error {
	t.mu.Lock()
	thread, ok := t.threads[rootID]
	if !ok {
		t.mu.Unlock()
		return domain.ErrNotFound
	}
	t.manuallyExpanded[rootID] = true
	if !thread.Collapsed {
		t.mu.Unlock()
		return t.persistExpanded(ctx, rootID)
	}
	thread.Collapsed = false
	for _, id := range thread.CommentIDs {
		if id == rootID {
			continue
		}
		if t.hidden[id] > 0 {
			t.hidden[id]--
		}
	}
	t.recomputeVisualEnds()
	t.mu.Unlock()

	return t.persistExpanded(ctx, rootID)
}

// AutoCollapse collapses level-zero threads whose size reaches the
// threshold, skipping threads the user expanded manually in this or an
// earlier session.
func (t *Tracker) AutoCollapse(ctx context.Context, threshold int) ([]domain.CollapseNote, error) {
	if threshold <= 0 {
		threshold = domain.DefaultAutoCollapseThreshold
	}

	t.mu.Lock()
	var roots []string
	for id, thread := range t.threads {
		root, ok := t.byID[id]
		if !ok || root.LogicalLevel != 0 {
			continue
		}
		if thread.Size() >= threshold && !thread.Collapsed {
			roots = append(roots, id)
		}
	}
	t.mu.Unlock()
	sort.Strings(roots)

	var notes []domain.CollapseNote
	for _, id := range roots {
		expanded, err := t.wasManuallyExpanded(ctx, id)
		if err != nil {
			return notes, err
		}
		if expanded {
			continue
		}
		note, err := t.Collapse(ctx, id)
		if err != nil {
			return notes, err
		}
		if note != nil {
			notes = append(notes, *note)
		}
	}
	return notes, nil
}

// Visible reports whether a comment is hidden by any collapsed thread.
func (t *Tracker) Visible(commentID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hidden[commentID] == 0
}

// StepFrom maps a pointer-drag delta to the sibling thread reached after
// crossing the corresponding number of boundaries. Movement within the
// dead zone stays on the origin; each further step of dragStepSize pixels
// crosses one sibling.
func (t *Tracker) StepFrom(rootID string, delta float64) (string, error) {
	steps := DragSteps(delta, dragDeadZone, dragStepSize)

	t.mu.Lock()
	defer t.mu.Unlock()

	root, ok := t.byID[rootID]
	if !ok {
		return "", domain.ErrNotFound
	}
	siblings := t.siblingRoots(root)
	pos := -1
	for i, id := range siblings {
		if id == rootID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return "", domain.ErrNotFound
	}
	pos += steps
	if pos < 0 {
		pos = 0
	}
	if pos >= len(siblings) {
		pos = len(siblings) - 1
	}
	return siblings[pos], nil
}

// DragSteps maps an input delta in pixels to a discrete step count: zero
// inside the dead zone, then one step per stepSize beyond it, signed.
func DragSteps(delta, deadZone, stepSize float64) int {
	abs := delta
	sign := 1
	if abs < 0 {
		abs = -abs
		sign = -1
	}
	if abs <= deadZone {
		return 0
	}
	return sign * (1 + int((abs-deadZone)/stepSize))
}

// buildThread computes the structural range for one root: the contiguous
// logical range [root, last descendant by index] and the visual end, the
// last in-place descendant. Outdented replies can render outside their
// logical parent's nesting, splitting the two ends.
func (t *Tracker) buildThread(root *domain.Comment) (*domain.Thread, error) {
	descendants := make([]*domain.Comment, 0)
	for i := range t.comments {
		c := &t.comments[i]
		if c.ID == root.ID || c.ID == "" {
			continue
		}
		if c.IsDescendantOf(root.ID, t.byID) {
			descendants = append(descendants, c)
		}
	}

	thread := &domain.Thread{
		RootID:          root.ID,
		StartIndex:      root.Index,
		LogicalEndIndex: root.Index,
		VisualEndIndex:  root.Index,
		CommentIDs:      []string{root.ID},
	}
	if len(descendants) == 0 {
		return thread, nil
	}

	sort.Slice(descendants, func(a, b int) bool { return descendants[a].Index < descendants[b].Index })
	for _, d := range descendants {
		if d.Index <= root.Index {
			return nil, fmt.Errorf("%w: descendant %s precedes root %s", domain.ErrMalformedTree, d.ID, root.ID)
		}
		thread.CommentIDs = append(thread.CommentIDs, d.ID)
	}
	thread.LogicalEndIndex = descendants[len(descendants)-1].Index

	thread.VisualEndIndex = t.visualEnd(thread)
	return thread, nil
}

// visualEnd walks forward from the root while the run stays an in-place,
// visible descendant. A foreign comment or an outdented reply ends the
// visual range; comments hidden by a collapsed nested thread are skipped
// without breaking the run, since they are not rendered.
func (t *Tracker) visualEnd(thread *domain.Thread) int {
	member := make(map[int]*domain.Comment, len(thread.CommentIDs))
	for _, id := range thread.CommentIDs {
		if c, ok := t.byID[id]; ok {
			member[c.Index] = c
		}
	}
	visual := thread.StartIndex
	for idx := thread.StartIndex + 1; idx <= thread.LogicalEndIndex; idx++ {
		c, ok := member[idx]
		if !ok || c.Outdented {
			break
		}
		if t.hidden[c.ID] > 0 {
			continue
		}
		visual = idx
	}
	return visual
}

// recomputeVisualEnds adjusts visual ends after collapse state changed:
// an ancestor thread whose visual end is now hidden pulls it back to its
// last visible member. Logical ends never move.
func (t *Tracker) recomputeVisualEnds() {
	for _, thread := range t.threads {
		thread.VisualEndIndex = t.visualEnd(thread)
	}
}

// siblingRoots returns the roots sharing the comment's parent and logical
// level, in document order.
func (t *Tracker) siblingRoots(root *domain.Comment) []string {
	var out []string
	for i := range t.comments {
		c := &t.comments[i]
		if c.ID == "" {
			continue
		}
		if c.ParentID == root.ParentID && c.LogicalLevel == root.LogicalLevel {
			out = append(out, c.ID)
		}
	}
	return out
}

// wasManuallyExpanded merges the session flag with the persisted one.
func (t *Tracker) wasManuallyExpanded(ctx context.Context, rootID string) (bool, error) {
	t.mu.Lock()
	session := t.manuallyExpanded[rootID]
	t.mu.Unlock()
	if session {
		return true, nil
	}
	if t.flags == nil {
		return false, nil
	}
	return t.flags.IsManuallyExpanded(ctx, t.pageID, rootID)
}

// persistExpanded records the manual-expansion flag, best effort.
func (t *Tracker) persistExpanded(ctx context.Context, rootID string) error {
	if t.flags == nil {
		return nil
	}
	if err := t.flags.SetManuallyExpanded(ctx, t.pageID, rootID, true); err != nil {
		return fmt.Errorf("persisting expanded flag: %w", err)
	}
	return nil
}
