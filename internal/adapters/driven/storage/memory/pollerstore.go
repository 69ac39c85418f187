package memory

import (
	"context"
	"sync"

	"github.com/jwbth/talkwatch/internal/core/ports/driven"
)

// Ensure PollerStateStore implements the interface.
var _ driven.PollerStateStore = (*PollerStateStore)(nil)

// PollerStateStore is an in-memory implementation of
// driven.PollerStateStore.
type PollerStateStore struct {
	mu     sync.RWMutex
	states map[string]driven.PollerState
}

// NewPollerStateStore creates an in-memory poller state store.
func NewPollerStateStore() *PollerStateStore {
	return &PollerStateStore{states: make(map[string]driven.PollerState)}
}

// Get returns the state for a page, nil when none was recorded.
func (s *PollerStateStore) Get(_ context.Context, pageID string) (*driven.PollerState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[pageID]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

// Save stores the state for a page.
func (s *PollerStateStore) Save(_ context.Context, pageID string, state driven.PollerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[pageID] = state
	return nil
}
