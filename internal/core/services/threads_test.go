package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwbth/talkwatch/internal/core/domain"
)

// --- Mock flag store ---

type mockFlagStore struct {
	mu       sync.Mutex
	expanded map[string]bool
	setErr   error
}

func newMockFlagStore() *mockFlagStore {
	return &mockFlagStore{expanded: make(map[string]bool)}
}

func (m *mockFlagStore) IsManuallyExpanded(_ context.Context, _ string, rootID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expanded[rootID], nil
}

func (m *mockFlagStore) SetManuallyExpanded(_ context.Context, _ string, rootID string, expanded bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.expanded[rootID] = expanded
	return nil
}

// --- Fixtures ---

// treeComment builds a comment for tracker tests.
func treeComment(id string, index int, parentID string, level int) domain.Comment {
	return domain.Comment{
		ID:           id,
		Index:        index,
		ParentID:     parentID,
		Level:        level,
		LogicalLevel: level,
	}
}

// outdentedTree builds the canonical split-thread fixture: a root thread
// whose last reply is outdented past a foreign thread.
//
//	0 root
//	1   c1
//	2     c2
//	3 foreign
//	4   foreignChild
//	5 c3 (logical reply to c2, rendered outdented at level 0)
func outdentedTree() []domain.Comment {
	c3 := treeComment("c3", 5, "c2", 0)
	c3.LogicalLevel = 3
	c3.Outdented = true
	return []domain.Comment{
		treeComment("root", 0, "", 0),
		treeComment("c1", 1, "root", 1),
		treeComment("c2", 2, "c1", 2),
		treeComment("foreign", 3, "", 0),
		treeComment("foreignChild", 4, "foreign", 1),
		c3,
	}
}

func newTestTracker(comments []domain.Comment) (*Tracker, *mockFlagStore) {
	flags := newMockFlagStore()
	tracker := NewTracker("Talk:Test", flags)
	tracker.Reload(comments)
	return tracker, flags
}

// --- Thread building ---

func TestReload_BuildsThreadIntervals(t *testing.T) {
	tracker, _ := newTestTracker(outdentedTree())

	thread, err := tracker.Thread("root")
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "c1", "c2", "c3"}, thread.CommentIDs)
	assert.Equal(t, 0, thread.StartIndex)
	assert.Equal(t, 5, thread.LogicalEndIndex)
	assert.Equal(t, 2, thread.VisualEndIndex)
	assert.True(t, thread.Split())

	foreign, err := tracker.Thread("foreign")
	require.NoError(t, err)
	assert.Equal(t, 3, foreign.StartIndex)
	assert.Equal(t, 4, foreign.LogicalEndIndex)
	assert.Equal(t, 4, foreign.VisualEndIndex)
	assert.False(t, foreign.Split())
}

func TestReload_SkipsMalformedThread(t *testing.T) {
	// A descendant preceding its root makes the interval meaningless.
	comments := []domain.Comment{
		treeComment("stray", 0, "late", 1),
		treeComment("late", 1, "", 0),
	}
	tracker, _ := newTestTracker(comments)

	_, err := tracker.Thread("late")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The stray comment's own childless thread is unaffected.
	thread, err := tracker.Thread("stray")
	require.NoError(t, err)
	assert.Equal(t, 0, thread.StartIndex)
}

func TestThread_UnknownRoot(t *testing.T) {
	tracker, _ := newTestTracker(outdentedTree())
	_, err := tracker.Thread("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// --- Collapse and expand ---

func TestCollapse_NoteAnchorsAtVisualEnd(t *testing.T) {
	tracker, _ := newTestTracker(outdentedTree())

	note, err := tracker.Collapse(context.Background(), "root")
	require.NoError(t, err)
	require.NotNil(t, note)
	assert.Equal(t, "root", note.RootID)
	assert.Equal(t, 2, note.AnchorIndex)
	assert.Equal(t, 3, note.Hidden)

	assert.True(t, tracker.Visible("root"))
	assert.False(t, tracker.Visible("c1"))
	assert.False(t, tracker.Visible("c3"))
	assert.True(t, tracker.Visible("foreign"))
}

func TestCollapse_Idempotent(t *testing.T) {
	tracker, _ := newTestTracker(outdentedTree())
	ctx := context.Background()

	first, err := tracker.Collapse(ctx, "root")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := tracker.Collapse(ctx, "root")
	require.NoError(t, err)
	assert.Nil(t, second, "collapsing twice must be a no-op")

	// One expand undoes the single collapse completely.
	require.NoError(t, tracker.Expand(ctx, "root"))
	assert.True(t, tracker.Visible("c1"))
	assert.True(t, tracker.Visible("c3"))
}

func TestExpand_RecordsManualFlag(t *testing.T) {
	tracker, flags := newTestTracker(outdentedTree())
	ctx := context.Background()

	_, err := tracker.Collapse(ctx, "root")
	require.NoError(t, err)
	require.NoError(t, tracker.Expand(ctx, "root"))

	expanded, err := flags.IsManuallyExpanded(ctx, "Talk:Test", "root")
	require.NoError(t, err)
	assert.True(t, expanded)
}

func TestExpand_NeverCollapsedStillRecordsFlag(t *testing.T) {
	tracker, flags := newTestTracker(outdentedTree())
	ctx := context.Background()

	require.NoError(t, tracker.Expand(ctx, "root"))

	expanded, err := flags.IsManuallyExpanded(ctx, "Talk:Test", "root")
	require.NoError(t, err)
	assert.True(t, expanded)
	assert.True(t, tracker.Visible("c1"))
}

func TestCollapse_NestedThreadPullsVisualEndBack(t *testing.T) {
	tracker, _ := newTestTracker(outdentedTree())
	ctx := context.Background()

	// Collapsing the inner thread hides c2; the outer thread's visual
	// end retreats to the last visible member.
	_, err := tracker.Collapse(ctx, "c1")
	require.NoError(t, err)

	outer, err := tracker.Thread("root")
	require.NoError(t, err)
	assert.Equal(t, 1, outer.VisualEndIndex)
	assert.Equal(t, 5, outer.LogicalEndIndex)

	require.NoError(t, tracker.Expand(ctx, "c1"))
	outer, err = tracker.Thread("root")
	require.NoError(t, err)
	assert.Equal(t, 2, outer.VisualEndIndex)
}

// --- Auto-collapse ---

func TestAutoCollapse_CollapsesLargeTopLevelThreads(t *testing.T) {
	tracker, _ := newTestTracker(outdentedTree())

	notes, err := tracker.AutoCollapse(context.Background(), 3)
	require.NoError(t, err)

	// Only the root thread reaches the threshold; the foreign thread has
	// two comments and c1's thread is not top level.
	require.Len(t, notes, 1)
	assert.Equal(t, "root", notes[0].RootID)
	assert.False(t, tracker.Visible("c1"))
	assert.True(t, tracker.Visible("foreignChild"))
}

func TestAutoCollapse_HonoursManualExpansion(t *testing.T) {
	tracker, flags := newTestTracker(outdentedTree())
	ctx := context.Background()

	require.NoError(t, flags.SetManuallyExpanded(ctx, "Talk:Test", "root", true))

	notes, err := tracker.AutoCollapse(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, notes)
	assert.True(t, tracker.Visible("c1"))
}

// --- Drag navigation ---

func TestDragSteps(t *testing.T) {
	tests := []struct {
		name  string
		delta float64
		want  int
	}{
		{"inside dead zone", 10, 0},
		{"dead zone boundary", 20, 0},
		{"just past dead zone", 25, 1},
		{"one full step further", 84, 2},
		{"just under two steps", 83, 1},
		{"negative", -25, -1},
		{"large negative", -300, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DragSteps(tt.delta, dragDeadZone, dragStepSize))
		})
	}
}

func TestStepFrom(t *testing.T) {
	comments := []domain.Comment{
		treeComment("r0", 0, "", 0),
		treeComment("r1", 1, "", 0),
		treeComment("r2", 2, "", 0),
	}
	tracker, _ := newTestTracker(comments)

	next, err := tracker.StepFrom("r1", 30)
	require.NoError(t, err)
	assert.Equal(t, "r2", next)

	prev, err := tracker.StepFrom("r1", -30)
	require.NoError(t, err)
	assert.Equal(t, "r0", prev)

	// Inside the dead zone the origin is kept.
	same, err := tracker.StepFrom("r1", 5)
	require.NoError(t, err)
	assert.Equal(t, "r1", same)

	// Large deltas clamp at the ends.
	last, err := tracker.StepFrom("r0", 1000)
	require.NoError(t, err)
	assert.Equal(t, "r2", last)

	_, err = tracker.StepFrom("missing", 30)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
