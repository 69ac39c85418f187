package domain

import (
	"fmt"
	"time"
)

// Snapshot is the full set of comment and section records parsed from one
// specific page revision. Snapshots are immutable after construction.
type Snapshot struct {
	// RevisionID identifies the page revision this snapshot was parsed from.
	RevisionID int64

	// Timestamp is the revision's save time.
	Timestamp time.Time

	// Comments in document order. Index values are unique and strictly
	// increasing.
	Comments []Comment

	// Sections in document order.
	Sections []Section
}

// RawRevision is the unparsed input handed to a snapshot parser.
type RawRevision struct {
	// ID is the revision id.
	ID int64

	// Timestamp is the revision's save time.
	Timestamp time.Time

	// Content is the serialized revision payload. The format is owned by
	// the parser implementation paired with the revision source.
	Content []byte
}

// Validate checks the snapshot invariants: strictly increasing comment
// indexes and unique comment ids after disambiguation.
func (s *Snapshot) Validate() error {
	seen := make(map[string]struct{}, len(s.Comments))
	lastIndex := -1
	for i := range s.Comments {
		c := &s.Comments[i]
		if c.Index <= lastIndex {
			return fmt.Errorf("%w: comment index %d not increasing at position %d", ErrInvalidInput, c.Index, i)
		}
		lastIndex = c.Index
		if c.ID == "" {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: duplicate comment id %q", ErrInvalidInput, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

// DisambiguateCommentIDs assigns ids to comments in document order,
// appending a counter when the same author signed more than once within
// the same minute. Unsigned comments keep an empty id.
func DisambiguateCommentIDs(comments []Comment) {
	counts := make(map[string]int, len(comments))
	for i := range comments {
		c := &comments[i]
		if !c.Signed() {
			continue
		}
		base := DeriveCommentID(*c.Date, c.AuthorName, 0)
		c.ID = DeriveCommentID(*c.Date, c.AuthorName, counts[base])
		counts[base]++
	}
}

// CommentsByID builds a lookup of signed comments keyed by id.
func (s *Snapshot) CommentsByID() map[string]*Comment {
	byID := make(map[string]*Comment, len(s.Comments))
	for i := range s.Comments {
		if s.Comments[i].ID != "" {
			byID[s.Comments[i].ID] = &s.Comments[i]
		}
	}
	return byID
}

// SectionAt returns the section with the given index, or nil.
func (s *Snapshot) SectionAt(index int) *Section {
	for i := range s.Sections {
		if s.Sections[i].Index == index {
			return &s.Sections[i]
		}
	}
	return nil
}
