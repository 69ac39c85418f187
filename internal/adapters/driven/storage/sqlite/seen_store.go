package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jwbth/talkwatch/internal/core/domain"
	"github.com/jwbth/talkwatch/internal/core/ports/driven"
)

// seenRenderStore implements driven.SeenRenderStore.
type seenRenderStore struct {
	store *Store
}

var _ driven.SeenRenderStore = (*seenRenderStore)(nil)

// Get returns the seen render for a comment on a page. Entries older than
// the retention window are pruned lazily before the read.
func (s *seenRenderStore) Get(ctx context.Context, pageID, commentID string) (*domain.SeenRender, error) {
	cutoff := time.Now().Add(-domain.DefaultSeenRetention)
	if err := s.Prune(ctx, pageID, cutoff); err != nil {
		return nil, err
	}

	row := s.store.db.QueryRowContext(ctx, `
		SELECT comment_id, html_to_compare, seen_at
		FROM seen_renders WHERE page_id = ? AND comment_id = ?
	`, pageID, commentID)

	var render domain.SeenRender
	err := row.Scan(&render.CommentID, &render.HTMLToCompare, &render.SeenTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying seen render: %w", err)
	}
	return &render, nil
}

// Save records an acknowledged render.
func (s *seenRenderStore) Save(ctx context.Context, pageID string, render domain.SeenRender) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO seen_renders (page_id, comment_id, html_to_compare, seen_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(page_id, comment_id) DO UPDATE SET
			html_to_compare = excluded.html_to_compare,
			seen_at = excluded.seen_at
	`, pageID, render.CommentID, render.HTMLToCompare, render.SeenTime)
	if err != nil {
		return fmt.Errorf("saving seen render: %w", err)
	}
	return nil
}

// Prune removes entries seen before cutoff.
func (s *seenRenderStore) Prune(ctx context.Context, pageID string, cutoff time.Time) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM seen_renders WHERE page_id = ? AND seen_at < ?
	`, pageID, cutoff.Unix())
	if err != nil {
		return fmt.Errorf("pruning seen renders: %w", err)
	}
	return nil
}
