package domain

// ChangeEvents flags what happened to one current comment between the
// displayed revision and a newer one. At most one of the flags is set per
// classification pass.
type ChangeEvents struct {
	Changed   bool
	Unchanged bool
	Deleted   bool
	Undeleted bool
}

// CommentChange is one entry of the raw diff list a check produces.
type CommentChange struct {
	// CommentID is the current comment the entry describes.
	CommentID string

	// Events is the classification outcome.
	Events ChangeEvents

	// CurrentText and NewText carry the comparison text on both sides for
	// changed comments, so consumers can render a diff without re-parsing.
	CurrentText string
	NewText     string

	// NewHeadline carries the enclosing section headline on the other
	// side when the heading differs.
	NewHeadline string

	// Score is the match score behind the classification, zero for
	// deleted comments.
	Score float64
}

// NewComments groups comments present in the new snapshot that no current
// comment matched.
type NewComments struct {
	// All holds every genuinely new comment.
	All []Comment

	// Relevant filters All down to comments the viewer cares about:
	// muted authors and collapsed-thread members are dropped (unless
	// opted in), as are comments neither addressed to nor subscribed by
	// the viewer.
	Relevant []Comment

	// BySection groups All by the new snapshot's section headline.
	BySection map[string][]Comment
}

// SeenRender records a change rendering the user already acknowledged, so
// the same change is not re-flagged on the next check.
type SeenRender struct {
	CommentID     string
	HTMLToCompare string
	SeenTime      int64
}
