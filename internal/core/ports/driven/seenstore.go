package driven

import (
	"context"
	"time"

	"github.com/jwbth/talkwatch/internal/core/domain"
)

// SeenRenderStore persists change renderings the user acknowledged, keyed
// by page id, so an already-seen change is not re-flagged.
type SeenRenderStore interface {
	// Get returns the seen render for a comment on a page.
	// Returns nil and no error when none is recorded. Implementations
	// lazily prune entries older than the retention window on read.
	Get(ctx context.Context, pageID, commentID string) (*domain.SeenRender, error)

	// Save records an acknowledged render.
	Save(ctx context.Context, pageID string, render domain.SeenRender) error

	// Prune removes entries seen before cutoff.
	Prune(ctx context.Context, pageID string, cutoff time.Time) error
}
