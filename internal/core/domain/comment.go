package domain

import (
	"fmt"
	"strings"
	"time"
)

// Comment is one comment record parsed out of a page revision.
// Records are immutable once a snapshot is built; reconciliation results
// live in a MatchSet, never on the record itself.
type Comment struct {
	// ID is the stable identity string, derived deterministically from
	// (date, author, disambiguation counter). See DeriveCommentID.
	// Empty for unsigned comments without a date.
	ID string

	// Index is the ordinal position in document order within one snapshot.
	// Not stable across revisions.
	Index int

	// AuthorName is the signing author, empty for unsigned comments.
	AuthorName string

	// Date is the signature timestamp. Nil for unsigned comments; such
	// comments never participate in author+date candidate bucketing.
	Date *time.Time

	// ParentID references the comment this one replies to, or empty when
	// the comment replies directly to a section or to an unsigned comment.
	ParentID string

	// ParentAuthor is the parent comment's author name, empty at section
	// level. Carried so a reply to an unsigned parent can still be
	// correlated by the parent's author.
	ParentAuthor string

	// ParentUnsigned marks that the comment replies to a comment without
	// a derived id, distinguishing it from a section-level reply.
	ParentUnsigned bool

	// SectionIndex is the enclosing section's index in the same snapshot,
	// or -1 when the comment sits outside any section.
	SectionIndex int

	// TextFragments holds one serialized HTML string per contiguous part
	// of the comment. Intervening markup can split a comment into several
	// parts.
	TextFragments []string

	// ComparisonText is the normalised plain-text rendering. It is used
	// only for similarity scoring, never for identity.
	ComparisonText string

	// Level is the rendered nesting depth. LogicalLevel is the reply
	// depth with outdented replies flattened back; Level >= LogicalLevel
	// always holds, and LogicalLevel == 0 means the comment replies
	// directly to a section.
	Level        int
	LogicalLevel int

	// Outdented marks a reply rendered outside its logical parent's
	// visual nesting via the outdent convention.
	Outdented bool
}

// Signed reports whether the comment carries a usable author+date identity.
func (c *Comment) Signed() bool {
	return c.AuthorName != "" && c.Date != nil
}

// SameAuthorAndDate reports exact author and timestamp equality with other.
// Comments without a date never compare equal.
func (c *Comment) SameAuthorAndDate(other *Comment) bool {
	if c.Date == nil || other.Date == nil {
		return false
	}
	return c.AuthorName == other.AuthorName && c.Date.Equal(*other.Date)
}

// IsDescendantOf reports whether the comment is a descendant of rootID
// according to byID, walking the parent chain.
func (c *Comment) IsDescendantOf(rootID string, byID map[string]*Comment) bool {
	seen := 0
	for cur := c; cur.ParentID != ""; {
		parent, ok := byID[cur.ParentID]
		if !ok {
			return false
		}
		if parent.ID == rootID {
			return true
		}
		cur = parent
		// Guard against a parent cycle in malformed input.
		if seen++; seen > len(byID) {
			return false
		}
	}
	return false
}

// DeriveCommentID builds the deterministic comment identity from the
// signature date and author. The disambiguation counter distinguishes two
// comments by the same author within the same minute; zero means no
// counter is appended.
func DeriveCommentID(date time.Time, author string, disambiguation int) string {
	id := fmt.Sprintf("%s_%s", date.UTC().Format("200601021504"), sanitizeAuthor(author))
	if disambiguation > 0 {
		id = fmt.Sprintf("%s_%d", id, disambiguation+1)
	}
	return id
}

// sanitizeAuthor makes an author name safe for use inside an ID.
func sanitizeAuthor(author string) string {
	return strings.ReplaceAll(strings.TrimSpace(author), " ", "_")
}
