package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single check against the configured page",
	Long: `Compares a baseline revision against the latest revision of the
configured page and prints new, changed and deleted comments.

The baseline is the last revision a previous check saw, unless
--since-revision overrides it.`,
	RunE: runCheck,
}

var checkSinceRevision int64

func init() {
	checkCmd.Flags().Int64Var(&checkSinceRevision, "since-revision", 0,
		"revision id to compare against instead of the last checked one")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}

	ctx := cmd.Context()
	sink := &printSink{out: cmd.OutOrStdout()}
	poller := newPoller(sink)

	baseline := checkSinceRevision
	if baseline == 0 {
		saved, err := store.PollerStates().Get(ctx, watchCfg.PageID)
		if err != nil {
			return fmt.Errorf("failed to load poller state: %w", err)
		}
		if saved != nil {
			baseline = saved.LastCheckedRevisionID
		}
	}
	if baseline == 0 {
		return errors.New("no baseline revision known: pass --since-revision or run 'talkwatch watch' first")
	}

	if err := poller.Prime(ctx, baseline); err != nil {
		return fmt.Errorf("failed to load baseline revision %d: %w", baseline, err)
	}
	if err := poller.CheckNow(ctx); err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	status := poller.Status()
	if status.LastCheckedRevisionID <= baseline {
		cmd.Println("No newer revision.")
		return nil
	}
	cmd.Printf("Checked revision %d against baseline %d.\n",
		status.LastCheckedRevisionID, baseline)
	return nil
}
