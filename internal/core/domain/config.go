package domain

import "time"

// Default intervals and policy knobs. The background interval is longer
// because hidden pages do not need prompt updates.
const (
	DefaultForegroundInterval = 15 * time.Second
	DefaultBackgroundInterval = 60 * time.Second

	// DefaultSeenRetention is how long acknowledged change renders are
	// kept before lazy pruning on read.
	DefaultSeenRetention = 60 * 24 * time.Hour

	// DefaultAutoCollapseThreshold is the thread size at which threads
	// are collapsed on load.
	DefaultAutoCollapseThreshold = 10
)

// WatchConfig configures one watched page.
type WatchConfig struct {
	// PageID identifies the watched page in persisted stores.
	PageID string

	// ForegroundInterval and BackgroundInterval are the poll intervals
	// for the visible and hidden states.
	ForegroundInterval time.Duration
	BackgroundInterval time.Duration

	// AdvanceBaseline makes a successful check adopt the new snapshot as
	// the displayed revision. When false the baseline stays fixed, the
	// way an unreloaded page keeps showing its original revision.
	AdvanceBaseline bool

	// ViewerName is the viewer's account name, used for addressed-to
	// relevance.
	ViewerName string

	// MutedAuthors are dropped from the relevant new-comment group.
	MutedAuthors []string

	// SubscribedHeadlines are section headlines the viewer subscribed to.
	SubscribedHeadlines []string

	// IncludeCollapsed opts collapsed-thread members into the relevant
	// group.
	IncludeCollapsed bool

	// PreviousVisit is the time of the viewer's previous visit, zero when
	// unknown. Drives the one-shot comparison at load.
	PreviousVisit time.Time
}

// Normalize fills zero-valued intervals with defaults.
func (c *WatchConfig) Normalize() {
	if c.ForegroundInterval <= 0 {
		c.ForegroundInterval = DefaultForegroundInterval
	}
	if c.BackgroundInterval <= 0 {
		c.BackgroundInterval = DefaultBackgroundInterval
	}
}
