package file

import (
	"time"

	"github.com/jwbth/talkwatch/internal/core/domain"
	"github.com/jwbth/talkwatch/internal/core/ports/driven"
)

// Configuration keys.
const (
	KeyAPIEndpoint         = "api.endpoint"
	KeyPage                = "watch.page"
	KeyForegroundInterval  = "watch.foreground_interval_seconds"
	KeyBackgroundInterval  = "watch.background_interval_seconds"
	KeyAdvanceBaseline     = "watch.advance_baseline"
	KeyViewerName          = "viewer.name"
	KeyMutedAuthors        = "viewer.muted_authors"
	KeySubscribedHeadlines = "viewer.subscribed_headlines"
	KeyIncludeCollapsed    = "viewer.include_collapsed"
	KeyOAuthToken          = "api.oauth_token"
)

// LoadWatchConfig builds a WatchConfig from the config store, applying
// defaults for anything unset. The page id doubles as the store key for
// persisted per-page state.
func LoadWatchConfig(store driven.ConfigStore) domain.WatchConfig {
	cfg := domain.WatchConfig{
		PageID:              store.GetString(KeyPage),
		ViewerName:          store.GetString(KeyViewerName),
		MutedAuthors:        store.GetStringSlice(KeyMutedAuthors),
		SubscribedHeadlines: store.GetStringSlice(KeySubscribedHeadlines),
		IncludeCollapsed:    store.GetBool(KeyIncludeCollapsed),
		AdvanceBaseline:     store.GetBool(KeyAdvanceBaseline),
	}
	if seconds := store.GetInt(KeyForegroundInterval); seconds > 0 {
		cfg.ForegroundInterval = time.Duration(seconds) * time.Second
	}
	if seconds := store.GetInt(KeyBackgroundInterval); seconds > 0 {
		cfg.BackgroundInterval = time.Duration(seconds) * time.Second
	}
	cfg.Normalize()
	return cfg
}
