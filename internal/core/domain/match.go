package domain

// Match is the reconciliation outcome for one current comment: a pointer
// into the other snapshot plus the score that justified it.
type Match struct {
	// OtherID is the matched comment's id in the other snapshot. Empty
	// when no candidate survived but a plausible one existed (PoorMatch).
	OtherID string

	// Score is the weighted score of the winning candidate pair.
	Score float64

	// PoorMatch marks that a candidate scored above the discard threshold
	// yet was not chosen. It signals "something changed here, handle with
	// care": callers suppress deletion reports and auto-collapse for such
	// comments rather than treating the miss as a clean absence.
	PoorMatch bool

	// ParentOtherID is a derived projection filled after matching: the
	// matched comment's parent id in the other snapshot, set only when
	// that parent is itself matched by some current comment.
	ParentOtherID string
}

// Matched reports whether an actual correspondence was assigned.
func (m Match) Matched() bool {
	return m.OtherID != ""
}

// MatchSet is the correspondence map produced by one matcher run, keyed by
// current-comment id. Re-computed wholesale each poll; no incremental state
// is carried across polls.
type MatchSet map[string]Match

// Lookup returns the match for a comment id, if any.
func (ms MatchSet) Lookup(commentID string) (Match, bool) {
	m, ok := ms[commentID]
	return m, ok
}

// OtherMatched reports whether any current comment points at otherID.
func (ms MatchSet) OtherMatched(otherID string) bool {
	for _, m := range ms {
		if m.OtherID == otherID {
			return true
		}
	}
	return false
}

// SectionMatchSet maps current section indexes to other section indexes.
type SectionMatchSet map[int]int
