package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jwbth/talkwatch/internal/core/domain"
	"github.com/jwbth/talkwatch/internal/core/ports/driving"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the configured page and report discussion changes",
	Long: `Starts the poller against the configured page. Each time a newer
revision appears, new, changed and deleted comments are printed.
Runs until interrupted.`,
	RunE: runWatch,
}

var watchBackgrounded bool

func init() {
	watchCmd.Flags().BoolVar(&watchBackgrounded, "backgrounded", false,
		"start with the longer backgrounded poll interval")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sink := &printSink{out: cmd.OutOrStdout()}
	poller := newPoller(sink)
	if watchBackgrounded {
		poller.SetHidden(true)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- poller.Start(ctx)
	}()

	cmd.Printf("Watching %s. Press Ctrl-C to stop.\n", watchCfg.PageID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		cmd.Println("\nStopping...")
		if err := poller.Stop(); err != nil {
			return fmt.Errorf("failed to stop poller: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("poller exited: %w", err)
		}
		return nil
	}
}

// Ensure printSink implements the interface.
var _ driving.EventSink = (*printSink)(nil)

// printSink renders check results to the terminal.
type printSink struct {
	mu  sync.Mutex
	out io.Writer
}

func (s *printSink) Check(revisionID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, styleMuted.Render(fmt.Sprintf("checking revision %d", revisionID)))
}

func (s *printSink) SectionsUpdate(sections []domain.Section) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, styleMuted.Render(fmt.Sprintf("%d sections", len(sections))))
}

func (s *printSink) NewChanges(changes []domain.CommentChange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range changes {
		switch {
		case ch.Events.Changed:
			fmt.Fprintln(s.out, styleChanged.Render("~ "+ch.CommentID))
			if ch.NewHeadline != "" {
				fmt.Fprintln(s.out, styleMuted.Render("  moved under: "+ch.NewHeadline))
			}
		case ch.Events.Deleted:
			fmt.Fprintln(s.out, styleDeleted.Render("- "+ch.CommentID))
		case ch.Events.Undeleted:
			fmt.Fprintln(s.out, styleUndeleted.Render("+ "+ch.CommentID+" (restored)"))
		}
	}
}

func (s *printSink) CommentsUpdate(update domain.NewComments) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(update.All) == 0 {
		return
	}

	relevant := make(map[string]bool, len(update.Relevant))
	for _, c := range update.Relevant {
		relevant[c.ID] = true
	}

	headlines := make([]string, 0, len(update.BySection))
	for headline := range update.BySection {
		headlines = append(headlines, headline)
	}
	sort.Strings(headlines)

	for _, headline := range headlines {
		fmt.Fprintln(s.out, styleHeadline.Render(headline))
		for _, c := range update.BySection[headline] {
			line := fmt.Sprintf("  + %s by %s", c.ID, c.AuthorName)
			if relevant[c.ID] {
				fmt.Fprintln(s.out, styleNew.Render(line))
			} else {
				fmt.Fprintln(s.out, styleMuted.Render(line))
			}
		}
	}
}
