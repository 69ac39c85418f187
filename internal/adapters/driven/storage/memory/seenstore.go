// Package memory provides in-memory store implementations, used in tests
// and as fallbacks when no data directory is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jwbth/talkwatch/internal/core/domain"
	"github.com/jwbth/talkwatch/internal/core/ports/driven"
)

// Ensure SeenRenderStore implements the interface.
var _ driven.SeenRenderStore = (*SeenRenderStore)(nil)

// SeenRenderStore is an in-memory implementation of driven.SeenRenderStore.
type SeenRenderStore struct {
	mu        sync.RWMutex
	renders   map[string]map[string]domain.SeenRender
	retention time.Duration
}

// NewSeenRenderStore creates a store with the default retention window.
func NewSeenRenderStore() *SeenRenderStore {
	return &SeenRenderStore{
		renders:   make(map[string]map[string]domain.SeenRender),
		retention: domain.DefaultSeenRetention,
	}
}

// Get returns the seen render for a comment, pruning stale entries lazily.
func (s *SeenRenderStore) Get(ctx context.Context, pageID, commentID string) (*domain.SeenRender, error) {
	cutoff := time.Now().Add(-s.retention)
	if err := s.Prune(ctx, pageID, cutoff); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	render, ok := s.renders[pageID][commentID]
	if !ok {
		return nil, nil
	}
	return &render, nil
}

// Save records an acknowledged render.
func (s *SeenRenderStore) Save(_ context.Context, pageID string, render domain.SeenRender) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.renders[pageID] == nil {
		s.renders[pageID] = make(map[string]domain.SeenRender)
	}
	s.renders[pageID][render.CommentID] = render
	return nil
}

// Prune removes entries seen before cutoff.
func (s *SeenRenderStore) Prune(_ context.Context, pageID string, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, render := range s.renders[pageID] {
		if time.Unix(render.SeenTime, 0).Before(cutoff) {
			delete(s.renders[pageID], id)
		}
	}
	return nil
}
