package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jwbth/talkwatch/internal/core/ports/driven"
)

// threadFlagStore implements driven.ThreadFlagStore.
type threadFlagStore struct {
	store *Store
}

var _ driven.ThreadFlagStore = (*threadFlagStore)(nil)

// IsManuallyExpanded reports whether the flag is set for a root.
func (s *threadFlagStore) IsManuallyExpanded(ctx context.Context, pageID, commentID string) (bool, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT 1 FROM expanded_threads WHERE page_id = ? AND comment_id = ?
	`, pageID, commentID)

	var one int
	err := row.Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying expanded flag: %w", err)
	}
	return true, nil
}

// SetManuallyExpanded sets or clears the flag for a root.
func (s *threadFlagStore) SetManuallyExpanded(ctx context.Context, pageID, commentID string, expanded bool) error {
	var err error
	if expanded {
		_, err = s.store.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO expanded_threads (page_id, comment_id) VALUES (?, ?)
		`, pageID, commentID)
	} else {
		_, err = s.store.db.ExecContext(ctx, `
			DELETE FROM expanded_threads WHERE page_id = ? AND comment_id = ?
		`, pageID, commentID)
	}
	if err != nil {
		return fmt.Errorf("setting expanded flag: %w", err)
	}
	return nil
}
