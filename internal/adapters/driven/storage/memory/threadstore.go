package memory

import (
	"context"
	"sync"

	"github.com/jwbth/talkwatch/internal/core/ports/driven"
)

// Ensure ThreadFlagStore implements the interface.
var _ driven.ThreadFlagStore = (*ThreadFlagStore)(nil)

// ThreadFlagStore is an in-memory implementation of driven.ThreadFlagStore.
type ThreadFlagStore struct {
	mu       sync.RWMutex
	expanded map[string]map[string]bool
}

// NewThreadFlagStore creates an in-memory thread flag store.
func NewThreadFlagStore() *ThreadFlagStore {
	return &ThreadFlagStore{expanded: make(map[string]map[string]bool)}
}

// IsManuallyExpanded reports whether the flag is set for a root.
func (s *ThreadFlagStore) IsManuallyExpanded(_ context.Context, pageID, commentID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expanded[pageID][commentID], nil
}

// SetManuallyExpanded sets or clears the flag for a root.
func (s *ThreadFlagStore) SetManuallyExpanded(_ context.Context, pageID, commentID string, expanded bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expanded[pageID] == nil {
		s.expanded[pageID] = make(map[string]bool)
	}
	if expanded {
		s.expanded[pageID][commentID] = true
	} else {
		delete(s.expanded[pageID], commentID)
	}
	return nil
}
