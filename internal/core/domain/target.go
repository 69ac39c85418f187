package domain

// TargetKind tags the kind of object a reply or restore operation is
// addressed to.
type TargetKind string

// Target kinds.
const (
	TargetPage    TargetKind = "page"
	TargetSection TargetKind = "section"
	TargetComment TargetKind = "comment"
)

// Target is the minimal surface the matcher/poller boundary needs from a
// reply target, regardless of kind.
type Target interface {
	// Kind returns the target's kind tag.
	Kind() TargetKind

	// TargetID returns the target's identity: empty for the page, the
	// external or derived id otherwise.
	TargetID() string

	// ParentCommentID returns the parent comment id for comment targets,
	// empty otherwise.
	ParentCommentID() string

	// SectionIndex returns the enclosing section index, or -1.
	SectionIndex() int
}

// PageTarget addresses the page itself.
type PageTarget struct{}

func (PageTarget) Kind() TargetKind        { return TargetPage }
func (PageTarget) TargetID() string        { return "" }
func (PageTarget) ParentCommentID() string { return "" }
func (PageTarget) SectionIndex() int       { return -1 }

// SectionTarget addresses a section.
type SectionTarget struct {
	Section Section
}

func (t SectionTarget) Kind() TargetKind        { return TargetSection }
func (t SectionTarget) TargetID() string        { return t.Section.ExternalID }
func (t SectionTarget) ParentCommentID() string { return "" }
func (t SectionTarget) SectionIndex() int       { return t.Section.Index }

// CommentTarget addresses a comment.
type CommentTarget struct {
	Comment Comment
}

func (t CommentTarget) Kind() TargetKind        { return TargetComment }
func (t CommentTarget) TargetID() string        { return t.Comment.ID }
func (t CommentTarget) ParentCommentID() string { return t.Comment.ParentID }
func (t CommentTarget) SectionIndex() int       { return t.Comment.SectionIndex }
