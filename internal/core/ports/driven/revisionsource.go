package driven

import (
	"context"
	"time"

	"github.com/jwbth/talkwatch/internal/core/domain"
)

// RevisionSource fetches page revisions from a content service. It is a
// thin wrapper over the remote API; request shape is an adapter concern.
type RevisionSource interface {
	// LatestRevisionID returns the id of the newest revision of the
	// watched page.
	LatestRevisionID(ctx context.Context) (int64, error)

	// FetchRevision returns the raw payload of one revision.
	FetchRevision(ctx context.Context, revisionID int64) (*domain.RawRevision, error)

	// RevisionAt returns the newest revision saved at or before t, for
	// the one-shot previous-visit comparison. Returns ErrNoRevision when
	// the page did not exist yet.
	RevisionAt(ctx context.Context, t time.Time) (*domain.RawRevision, error)

	// Close releases resources.
	Close() error
}
