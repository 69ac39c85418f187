package sqlite

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwbth/talkwatch/internal/core/domain"
	"github.com/jwbth/talkwatch/internal/core/ports/driven"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "talkwatch-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

func TestNewStore_CreatesDatabaseFile(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestNewStore_MigrationsAreIdempotent(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "talkwatch-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening the same data directory must not re-run migrations.
	store, err = NewStore(tempDir)
	require.NoError(t, err)
	defer store.Close()

	var version int
	row := store.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	require.NoError(t, row.Scan(&version))
	assert.Equal(t, 1, version)

	var count int
	row = store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations")
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSeenRenderStore_SaveAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seen := store.SeenRenders()

	render := domain.SeenRender{
		CommentID:     "202601101200_Alice",
		HTMLToCompare: "Hello world",
		SeenTime:      time.Now().Unix(),
	}
	require.NoError(t, seen.Save(ctx, "Talk:Go", render))

	got, err := seen.Get(ctx, "Talk:Go", render.CommentID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, render, *got)
}

func TestSeenRenderStore_GetMissingReturnsNil(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	got, err := store.SeenRenders().Get(context.Background(), "Talk:Go", "202601101200_Alice")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSeenRenderStore_SaveOverwrites(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seen := store.SeenRenders()

	first := domain.SeenRender{
		CommentID:     "202601101200_Alice",
		HTMLToCompare: "Old text",
		SeenTime:      time.Now().Add(-time.Hour).Unix(),
	}
	require.NoError(t, seen.Save(ctx, "Talk:Go", first))

	second := first
	second.HTMLToCompare = "New text"
	second.SeenTime = time.Now().Unix()
	require.NoError(t, seen.Save(ctx, "Talk:Go", second))

	got, err := seen.Get(ctx, "Talk:Go", first.CommentID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "New text", got.HTMLToCompare)
	assert.Equal(t, second.SeenTime, got.SeenTime)
}

func TestSeenRenderStore_PagesAreIsolated(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seen := store.SeenRenders()

	render := domain.SeenRender{
		CommentID:     "202601101200_Alice",
		HTMLToCompare: "Hello",
		SeenTime:      time.Now().Unix(),
	}
	require.NoError(t, seen.Save(ctx, "Talk:Go", render))

	got, err := seen.Get(ctx, "Talk:Rust", render.CommentID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSeenRenderStore_GetPrunesStaleEntries(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	seen := store.SeenRenders()

	stale := domain.SeenRender{
		CommentID:     "202601101200_Alice",
		HTMLToCompare: "Old",
		SeenTime:      time.Now().Add(-domain.DefaultSeenRetention - time.Hour).Unix(),
	}
	fresh := domain.SeenRender{
		CommentID:     "202601101205_Bob",
		HTMLToCompare: "New",
		SeenTime:      time.Now().Unix(),
	}
	require.NoError(t, seen.Save(ctx, "Talk:Go", stale))
	require.NoError(t, seen.Save(ctx, "Talk:Go", fresh))

	got, err := seen.Get(ctx, "Talk:Go", stale.CommentID)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = seen.Get(ctx, "Talk:Go", fresh.CommentID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "New", got.HTMLToCompare)
}

func TestThreadFlagStore_SetAndClear(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	flags := store.ThreadFlags()

	expanded, err := flags.IsManuallyExpanded(ctx, "Talk:Go", "202601101200_Alice")
	require.NoError(t, err)
	assert.False(t, expanded)

	require.NoError(t, flags.SetManuallyExpanded(ctx, "Talk:Go", "202601101200_Alice", true))

	expanded, err = flags.IsManuallyExpanded(ctx, "Talk:Go", "202601101200_Alice")
	require.NoError(t, err)
	assert.True(t, expanded)

	// Setting an already-set flag is fine.
	require.NoError(t, flags.SetManuallyExpanded(ctx, "Talk:Go", "202601101200_Alice", true))

	require.NoError(t, flags.SetManuallyExpanded(ctx, "Talk:Go", "202601101200_Alice", false))

	expanded, err = flags.IsManuallyExpanded(ctx, "Talk:Go", "202601101200_Alice")
	require.NoError(t, err)
	assert.False(t, expanded)
}

func TestThreadFlagStore_PagesAreIsolated(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	flags := store.ThreadFlags()

	require.NoError(t, flags.SetManuallyExpanded(ctx, "Talk:Go", "202601101200_Alice", true))

	expanded, err := flags.IsManuallyExpanded(ctx, "Talk:Rust", "202601101200_Alice")
	require.NoError(t, err)
	assert.False(t, expanded)
}

func TestPollerStateStore_GetMissingReturnsNil(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	got, err := store.PollerStates().Get(context.Background(), "Talk:Go")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPollerStateStore_SaveAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	states := store.PollerStates()

	visit := time.Now().UTC().Truncate(time.Second)
	state := driven.PollerState{
		LastCheckedRevisionID:   42,
		PreviousVisitRevisionID: 40,
		PreviousVisitTime:       visit,
	}
	require.NoError(t, states.Save(ctx, "Talk:Go", state))

	got, err := states.Get(ctx, "Talk:Go")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.LastCheckedRevisionID)
	assert.Equal(t, int64(40), got.PreviousVisitRevisionID)
	assert.True(t, got.PreviousVisitTime.Equal(visit))
}

func TestPollerStateStore_SaveOverwrites(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	states := store.PollerStates()

	require.NoError(t, states.Save(ctx, "Talk:Go", driven.PollerState{LastCheckedRevisionID: 42}))
	require.NoError(t, states.Save(ctx, "Talk:Go", driven.PollerState{LastCheckedRevisionID: 43}))

	got, err := states.Get(ctx, "Talk:Go")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(43), got.LastCheckedRevisionID)
}

func TestPollerStateStore_ZeroVisitTimeStaysZero(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	states := store.PollerStates()

	require.NoError(t, states.Save(ctx, "Talk:Go", driven.PollerState{LastCheckedRevisionID: 42}))

	got, err := states.Get(ctx, "Talk:Go")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.PreviousVisitTime.IsZero())
}
