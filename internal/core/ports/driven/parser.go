package driven

import (
	"context"

	"github.com/jwbth/talkwatch/internal/core/domain"
)

// SnapshotParser turns one raw revision into comment and section records.
// Parsing is a pure function of the revision content; implementations may
// offload the work to a worker and must de-duplicate concurrent requests
// for the same revision id.
type SnapshotParser interface {
	// Parse produces the snapshot for a revision.
	Parse(ctx context.Context, rev *domain.RawRevision) (*domain.Snapshot, error)

	// Close releases resources.
	Close() error
}
