package mediawiki

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jwbth/talkwatch/internal/core/domain"
	"github.com/jwbth/talkwatch/internal/normalisers/wikihtml"
)

// threadItem is the wire shape of one DiscussionTools thread item. Items
// nest: headings hold their section's top-level comments, comments hold
// their replies.
type threadItem struct {
	Type         string       `json:"type"` // "heading" or "comment"
	ID           string       `json:"id"`
	Author       string       `json:"author"`
	Timestamp    string       `json:"timestamp"`
	Headline     string       `json:"headline"`
	HeadingLevel int          `json:"headingLevel"`
	Level        int          `json:"level"`
	HTML         []string     `json:"html"`
	Outdented    bool         `json:"outdented"`
	Replies      []threadItem `json:"replies"`
}

type pageInfoResponse struct {
	PageInfo struct {
		ThreadItemsHTML []threadItem `json:"threaditemshtml"`
	} `json:"discussiontoolspageinfo"`
}

// DecodeSnapshot is the pure parse step: it turns one raw revision payload
// into an immutable snapshot. It is the function handed to the parse
// worker.
func DecodeSnapshot(rev *domain.RawRevision) (*domain.Snapshot, error) {
	var payload pageInfoResponse
	if err := json.Unmarshal(rev.Content, &payload); err != nil {
		return nil, fmt.Errorf("decoding thread items for revision %d: %w", rev.ID, err)
	}

	b := &snapshotBuilder{}
	for i := range payload.PageInfo.ThreadItemsHTML {
		b.walkItem(&payload.PageInfo.ThreadItemsHTML[i], -1, 0)
	}
	domain.DisambiguateCommentIDs(b.comments)
	b.fixParentIDs()
	b.fillOldestComments()

	snapshot := &domain.Snapshot{
		RevisionID: rev.ID,
		Timestamp:  rev.Timestamp,
		Comments:   b.comments,
		Sections:   b.sections,
	}
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// snapshotBuilder accumulates records while walking the item tree in
// document order.
type snapshotBuilder struct {
	comments []domain.Comment
	sections []domain.Section
	// parentSlot remembers, per comment position, the position of its
	// parent comment (or -1), so parent ids can be fixed up after
	// disambiguation assigns them.
	parentSlot []int
	ancestors  []string
}

// walkItem records one item and recurses into its replies. parentPos is
// the builder position of the enclosing comment, -1 at section level.
func (b *snapshotBuilder) walkItem(item *threadItem, parentPos, logicalLevel int) {
	switch item.Type {
	case "heading":
		section := domain.Section{
			Headline:   item.Headline,
			ExternalID: item.ID,
			Ancestors:  append([]string(nil), b.ancestors...),
			Index:      len(b.sections),
		}
		b.sections = append(b.sections, section)

		b.ancestors = append([]string{item.Headline}, b.ancestors...)
		for i := range item.Replies {
			b.walkItem(&item.Replies[i], -1, 0)
		}
		b.ancestors = b.ancestors[1:]

	case "comment":
		comment := domain.Comment{
			Index:          len(b.comments),
			AuthorName:     item.Author,
			SectionIndex:   len(b.sections) - 1,
			TextFragments:  append([]string(nil), item.HTML...),
			ComparisonText: wikihtml.ComparisonText(item.HTML),
			Level:          item.Level,
			LogicalLevel:   logicalLevel,
			Outdented:      item.Outdented,
		}
		if ts, err := time.Parse(time.RFC3339, item.Timestamp); err == nil {
			utc := ts.UTC()
			comment.Date = &utc
		}
		if comment.Level < comment.LogicalLevel {
			comment.LogicalLevel = comment.Level
		}
		pos := len(b.comments)
		b.comments = append(b.comments, comment)
		b.parentSlot = append(b.parentSlot, parentPos)

		for i := range item.Replies {
			b.walkItem(&item.Replies[i], pos, logicalLevel+1)
		}
	}
}

// fixParentIDs links comments to their parents' final, disambiguated ids.
// An unsigned parent has no id; the reply keeps the parent's author and an
// unsigned marker instead.
func (b *snapshotBuilder) fixParentIDs() {
	for i := range b.comments {
		parent := b.parentSlot[i]
		if parent < 0 {
			continue
		}
		p := &b.comments[parent]
		b.comments[i].ParentID = p.ID
		b.comments[i].ParentAuthor = p.AuthorName
		b.comments[i].ParentUnsigned = p.ID == ""
	}
}

// fillOldestComments records each section's oldest dated comment id.
func (b *snapshotBuilder) fillOldestComments() {
	for s := range b.sections {
		var oldest *domain.Comment
		for i := range b.comments {
			c := &b.comments[i]
			if c.SectionIndex != s || c.Date == nil || c.ID == "" {
				continue
			}
			if oldest == nil || c.Date.Before(*oldest.Date) {
				oldest = c
			}
		}
		if oldest != nil {
			b.sections[s].OldestCommentID = oldest.ID
		}
	}
}
