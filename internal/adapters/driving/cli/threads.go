package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jwbth/talkwatch/internal/adapters/driven/filesystem"
	"github.com/jwbth/talkwatch/internal/adapters/driven/mediawiki"
	"github.com/jwbth/talkwatch/internal/adapters/driven/storage/sqlite"
	"github.com/jwbth/talkwatch/internal/core/services"
	"github.com/jwbth/talkwatch/internal/logger"
)

var threadsCmd = &cobra.Command{
	Use:   "threads <snapshot-dir>",
	Short: "Inspect threads in a locally saved snapshot",
	Long: `Reads the newest revision snapshot from a directory of saved
discussion JSON files and prints the thread structure: each root
comment with its member count and interval.

Snapshots are JSON files named <revision-id>.json in the format the
wiki's discussion API returns.`,
	Args: cobra.ExactArgs(1),
	RunE: runThreads,
}

var (
	threadsAutoCollapse int
	threadsCollapseRoot string
	threadsWatch        bool
)

func init() {
	threadsCmd.Flags().IntVar(&threadsAutoCollapse, "auto-collapse", 0,
		"collapse threads with at least this many comments")
	threadsCmd.Flags().StringVar(&threadsCollapseRoot, "collapse", "",
		"collapse the thread rooted at this comment id")
	threadsCmd.Flags().BoolVar(&threadsWatch, "watch", false,
		"keep running and re-list threads when new snapshot files appear")
	rootCmd.AddCommand(threadsCmd)
}

func runThreads(cmd *cobra.Command, args []string) error {
	dir := args[0]

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	source, err := filesystem.New(dir)
	if err != nil {
		return fmt.Errorf("failed to open snapshot directory: %w", err)
	}
	defer source.Close()

	st, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	tracker := services.NewTracker(dir, st.ThreadFlags())

	latest, err := source.LatestRevisionID(ctx)
	if err != nil {
		return fmt.Errorf("failed to find a snapshot: %w", err)
	}
	if err := listThreads(ctx, cmd, source, tracker, latest); err != nil {
		return err
	}
	if !threadsWatch {
		return nil
	}

	updates, err := source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	cmd.Println(styleMuted.Render("watching for new snapshots, Ctrl-C to stop"))
	for {
		select {
		case <-ctx.Done():
			return nil
		case id, ok := <-updates:
			if !ok {
				return nil
			}
			if err := listThreads(ctx, cmd, source, tracker, id); err != nil {
				logger.Warn("skipping snapshot %d: %v", id, err)
			}
		}
	}
}

// listThreads loads one snapshot, applies the collapse flags and prints
// every top-level thread.
func listThreads(ctx context.Context, cmd *cobra.Command, source *filesystem.Source, tracker *services.Tracker, revisionID int64) error {
	raw, err := source.FetchRevision(ctx, revisionID)
	if err != nil {
		return fmt.Errorf("failed to read snapshot %d: %w", revisionID, err)
	}
	snapshot, err := mediawiki.DecodeSnapshot(raw)
	if err != nil {
		return fmt.Errorf("failed to decode snapshot %d: %w", revisionID, err)
	}

	tracker.Reload(snapshot.Comments)

	if threadsCollapseRoot != "" {
		note, err := tracker.Collapse(ctx, threadsCollapseRoot)
		if err != nil {
			return fmt.Errorf("failed to collapse %s: %w", threadsCollapseRoot, err)
		}
		if note != nil {
			cmd.Printf("Collapsed %s: %d comments hidden.\n", note.RootID, note.Hidden)
		}
	}
	if threadsAutoCollapse > 0 {
		notes, err := tracker.AutoCollapse(ctx, threadsAutoCollapse)
		if err != nil {
			return fmt.Errorf("auto-collapse failed: %w", err)
		}
		for _, note := range notes {
			cmd.Printf("Collapsed %s: %d comments hidden.\n", note.RootID, note.Hidden)
		}
	}

	cmd.Printf("Revision %d: %d comments, %d sections.\n",
		snapshot.RevisionID, len(snapshot.Comments), len(snapshot.Sections))

	for _, c := range snapshot.Comments {
		if c.Level != 0 {
			continue
		}
		thread, err := tracker.Thread(c.ID)
		if err != nil {
			continue
		}
		line := fmt.Sprintf("%s  [%d..%d]  %d comments",
			thread.RootID, thread.StartIndex, thread.LogicalEndIndex, thread.Size())
		if thread.Collapsed {
			cmd.Println(styleMuted.Render(line + "  (collapsed)"))
		} else {
			cmd.Println(line)
		}
	}
	return nil
}
