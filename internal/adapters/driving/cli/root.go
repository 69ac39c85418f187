// Package cli provides the command-line interface for talkwatch.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/jwbth/talkwatch/internal/adapters/driven/config/file"
	"github.com/jwbth/talkwatch/internal/adapters/driven/mediawiki"
	"github.com/jwbth/talkwatch/internal/adapters/driven/parsework"
	"github.com/jwbth/talkwatch/internal/adapters/driven/storage/sqlite"
	"github.com/jwbth/talkwatch/internal/core/domain"
	"github.com/jwbth/talkwatch/internal/core/ports/driven"
	"github.com/jwbth/talkwatch/internal/core/ports/driving"
	"github.com/jwbth/talkwatch/internal/core/services"
	"github.com/jwbth/talkwatch/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// verboseFlag enables debug logging.
var verboseFlag bool

// Wired services. Populated by initServices before any command that
// needs them runs.
var (
	configStore    driven.ConfigStore
	store          *sqlite.Store
	revisionSource driven.RevisionSource
	snapshotParser driven.SnapshotParser
	watchCfg       domain.WatchConfig
)

var rootCmd = &cobra.Command{
	Use:   "talkwatch",
	Short: "Watch a wiki talk page for discussion changes",
	Long: `talkwatch polls a wiki talk page for new revisions and reports
new, changed and deleted comments, reconciling comment identity across
revisions even when signatures or text have been edited.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verboseFlag)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"enable verbose debug output")
}

// Execute runs the root command.
func Execute() error {
	defer shutdown()
	return rootCmd.Execute()
}

// SetVersion sets the version string reported by the version command.
func SetVersion(v string) {
	version = v
}

// initServices wires the adapters and core services for commands that
// talk to a wiki. Commands operating on local files skip this.
func initServices() error {
	if configStore != nil {
		return nil
	}

	cs, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	configStore = cs
	watchCfg = file.LoadWatchConfig(configStore)

	if watchCfg.PageID == "" {
		return fmt.Errorf("no page configured: set %q with 'talkwatch config set'", file.KeyPage)
	}

	endpoint := configStore.GetString(file.KeyAPIEndpoint)
	if endpoint == "" {
		return fmt.Errorf("no API endpoint configured: set %q with 'talkwatch config set'", file.KeyAPIEndpoint)
	}

	var tokens oauth2.TokenSource
	if token := configStore.GetString(file.KeyOAuthToken); token != "" {
		tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	}

	client, err := mediawiki.NewClient(mediawiki.Config{
		Endpoint:    endpoint,
		Page:        watchCfg.PageID,
		TokenSource: tokens,
	})
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}
	revisionSource = client
	snapshotParser = parsework.New(mediawiki.DecodeSnapshot)

	st, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	store = st

	logger.Debug("services initialised for page %s", watchCfg.PageID)
	return nil
}

// newPoller assembles a poller over the wired services. The attached
// tracker carries the displayed page's collapsed-thread state into the
// relevance filter.
func newPoller(sink driving.EventSink) *services.Poller {
	sections := services.NewSectionMatcher()
	matcher := services.NewCommentMatcher(sections)
	poller := services.NewPoller(
		watchCfg,
		revisionSource,
		snapshotParser,
		store.SeenRenders(),
		store.PollerStates(),
		sink,
		sections,
		matcher,
	)
	poller.SetTracker(services.NewTracker(watchCfg.PageID, store.ThreadFlags()))
	return poller
}

func shutdown() {
	if snapshotParser != nil {
		if err := snapshotParser.Close(); err != nil {
			logger.Warn("failed to close parser: %v", err)
		}
	}
	if revisionSource != nil {
		if err := revisionSource.Close(); err != nil {
			logger.Warn("failed to close revision source: %v", err)
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close store: %v", err)
		}
	}
}
