package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jwbth/talkwatch/internal/core/ports/driven"
)

// pollerStateStore implements driven.PollerStateStore.
type pollerStateStore struct {
	store *Store
}

var _ driven.PollerStateStore = (*pollerStateStore)(nil)

// Get returns the state for a page, nil when none was recorded.
func (s *pollerStateStore) Get(ctx context.Context, pageID string) (*driven.PollerState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT last_checked_revision, previous_visit_revision, previous_visit_at
		FROM poller_states WHERE page_id = ?
	`, pageID)

	var state driven.PollerState
	var visitUnix int64
	err := row.Scan(&state.LastCheckedRevisionID, &state.PreviousVisitRevisionID, &visitUnix)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying poller state: %w", err)
	}
	if visitUnix > 0 {
		state.PreviousVisitTime = time.Unix(visitUnix, 0).UTC()
	}
	return &state, nil
}

// Save stores the state for a page.
func (s *pollerStateStore) Save(ctx context.Context, pageID string, state driven.PollerState) error {
	visitUnix := int64(0)
	if !state.PreviousVisitTime.IsZero() {
		visitUnix = state.PreviousVisitTime.Unix()
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO poller_states (page_id, last_checked_revision, previous_visit_revision, previous_visit_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(page_id) DO UPDATE SET
			last_checked_revision = excluded.last_checked_revision,
			previous_visit_revision = excluded.previous_visit_revision,
			previous_visit_at = excluded.previous_visit_at
	`, pageID, state.LastCheckedRevisionID, state.PreviousVisitRevisionID, visitUnix)
	if err != nil {
		return fmt.Errorf("saving poller state: %w", err)
	}
	return nil
}
