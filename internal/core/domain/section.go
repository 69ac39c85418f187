package domain

// Section is one section heading record parsed out of a page revision.
type Section struct {
	// Headline is the rendered heading text.
	Headline string

	// ExternalID is the DiscussionTools-style stable id when the page
	// markup carries one, empty otherwise. An exact ExternalID match
	// wins section matching outright.
	ExternalID string

	// OldestCommentID is the id of the oldest comment inside the section,
	// empty when the section has no dated comments.
	OldestCommentID string

	// Ancestors is the ordered headline chain from the closest ancestor
	// heading up to the page root.
	Ancestors []string

	// Index is the ordinal position in document order within one snapshot.
	Index int
}

// SectionQuery describes a section-like target to locate among live
// sections: a serialized target being restored, or a section from another
// snapshot being correlated.
type SectionQuery struct {
	Headline        string
	ExternalID      string
	OldestCommentID string
	Ancestors       []string
	Index           int
}

// QueryFor builds the query that describes this section.
func (s *Section) QueryFor() SectionQuery {
	return SectionQuery{
		Headline:        s.Headline,
		ExternalID:      s.ExternalID,
		OldestCommentID: s.OldestCommentID,
		Ancestors:       s.Ancestors,
		Index:           s.Index,
	}
}
