// Package filesystem implements the revision source port over a local
// directory of snapshot payload files, one per revision, named
// <revisionID>.json. Useful for development and fixtures; a watcher
// surfaces newly dropped revisions.
package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jwbth/talkwatch/internal/core/domain"
	"github.com/jwbth/talkwatch/internal/core/ports/driven"
	"github.com/jwbth/talkwatch/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.RevisionSource = (*Source)(nil)

// Source serves revisions from a directory.
type Source struct {
	dir     string
	watcher *fsnotify.Watcher
	updates chan int64
}

// New creates a source over dir. The directory must exist.
func New(dir string) (*Source, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("opening revision directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}
	return &Source{dir: dir}, nil
}

// Watch starts surfacing revision ids of newly dropped files. The channel
// closes when the context is cancelled.
func (s *Source) Watch(ctx context.Context) (<-chan int64, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", s.dir, err)
	}
	s.watcher = watcher
	s.updates = make(chan int64, 8)

	go func() {
		defer close(s.updates)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}
				if id, ok := revisionIDFromName(event.Name); ok {
					select {
					case s.updates <- id:
					default:
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("watch error: %v", err)
			}
		}
	}()
	return s.updates, nil
}

// LatestRevisionID returns the highest revision id present.
func (s *Source) LatestRevisionID(_ context.Context) (int64, error) {
	ids, err := s.revisionIDs()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, domain.ErrNoRevision
	}
	return ids[len(ids)-1], nil
}

// FetchRevision reads one revision file.
func (s *Source) FetchRevision(_ context.Context, revisionID int64) (*domain.RawRevision, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("%d.json", revisionID))
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: revision %d", domain.ErrNoRevision, revisionID)
		}
		return nil, fmt.Errorf("reading revision %d: %w", revisionID, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &domain.RawRevision{ID: revisionID, Timestamp: info.ModTime().UTC(), Content: content}, nil
}

// RevisionAt returns the newest revision whose file was modified at or
// before t.
func (s *Source) RevisionAt(ctx context.Context, t time.Time) (*domain.RawRevision, error) {
	ids, err := s.revisionIDs()
	if err != nil {
		return nil, err
	}
	for i := len(ids) - 1; i >= 0; i-- {
		path := filepath.Join(s.dir, fmt.Sprintf("%d.json", ids[i]))
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if !info.ModTime().After(t) {
			return s.FetchRevision(ctx, ids[i])
		}
	}
	return nil, domain.ErrNoRevision
}

// Close releases the watcher, if any.
func (s *Source) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// revisionIDs lists the directory's revision ids in ascending order.
func (s *Source) revisionIDs() ([]int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing revisions: %w", err)
	}
	var ids []int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if id, ok := revisionIDFromName(entry.Name()); ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids, nil
}

// revisionIDFromName parses <revisionID>.json file names.
func revisionIDFromName(name string) (int64, bool) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, ".json") {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSuffix(base, ".json"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
