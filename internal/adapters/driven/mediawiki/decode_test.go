package mediawiki

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwbth/talkwatch/internal/core/domain"
)

const threadItemsPayload = `{
  "discussiontoolspageinfo": {
    "threaditemshtml": [
      {
        "type": "heading",
        "id": "h-Proposal-20260110143000",
        "headline": "Proposal",
        "headingLevel": 2,
        "replies": [
          {
            "type": "comment",
            "id": "c-Alice-20260110143000",
            "author": "Alice",
            "timestamp": "2026-01-10T14:30:00Z",
            "level": 1,
            "html": ["<p>I propose we merge the articles.</p>"],
            "replies": [
              {
                "type": "comment",
                "id": "c-Bob-20260110144500",
                "author": "Bob",
                "timestamp": "2026-01-10T14:45:00Z",
                "level": 2,
                "html": ["<p>Support, makes sense to me.</p>"]
              }
            ]
          },
          {
            "type": "comment",
            "id": "c-unsigned",
            "author": "",
            "timestamp": "",
            "level": 1,
            "html": ["<p>unsigned remark</p>"]
          }
        ]
      },
      {
        "type": "heading",
        "id": "h-Other-20260110150000",
        "headline": "Other business",
        "headingLevel": 2,
        "replies": [
          {
            "type": "comment",
            "id": "c-Carol-20260110150000",
            "author": "Carol",
            "timestamp": "2026-01-10T15:00:00Z",
            "level": 1,
            "html": ["<p>First point.</p>", "<p>Second point.</p>"]
          }
        ]
      }
    ]
  }
}`

func testRawRevision(id int64, content string) *domain.RawRevision {
	return &domain.RawRevision{
		ID:        id,
		Timestamp: time.Date(2026, 1, 10, 15, 30, 0, 0, time.UTC),
		Content:   []byte(content),
	}
}

func TestDecodeSnapshot(t *testing.T) {
	snapshot, err := DecodeSnapshot(testRawRevision(42, threadItemsPayload))
	require.NoError(t, err)

	assert.Equal(t, int64(42), snapshot.RevisionID)
	require.Len(t, snapshot.Sections, 2)
	require.Len(t, snapshot.Comments, 4)

	proposal := snapshot.Sections[0]
	assert.Equal(t, "Proposal", proposal.Headline)
	assert.Equal(t, "h-Proposal-20260110143000", proposal.ExternalID)
	assert.Equal(t, 0, proposal.Index)
	assert.Equal(t, "202601101430_Alice", proposal.OldestCommentID)

	alice := snapshot.Comments[0]
	assert.Equal(t, "202601101430_Alice", alice.ID)
	assert.Equal(t, 0, alice.Index)
	assert.Equal(t, 0, alice.SectionIndex)
	assert.Empty(t, alice.ParentID)
	assert.Equal(t, 0, alice.LogicalLevel)
	assert.Equal(t, "I propose we merge the articles.", alice.ComparisonText)
	require.NotNil(t, alice.Date)
	assert.Equal(t, time.Date(2026, 1, 10, 14, 30, 0, 0, time.UTC), *alice.Date)

	bob := snapshot.Comments[1]
	assert.Equal(t, "202601101445_Bob", bob.ID)
	assert.Equal(t, "202601101430_Alice", bob.ParentID)
	assert.Equal(t, 1, bob.LogicalLevel)

	unsigned := snapshot.Comments[2]
	assert.Empty(t, unsigned.ID)
	assert.Nil(t, unsigned.Date)

	carol := snapshot.Comments[3]
	assert.Equal(t, 1, carol.SectionIndex)
	assert.Equal(t, []string{"<p>First point.</p>", "<p>Second point.</p>"}, carol.TextFragments)
	assert.Equal(t, "First point.\nSecond point.", carol.ComparisonText)
}

func TestDecodeSnapshot_DisambiguatesSameMinute(t *testing.T) {
	payload := `{
  "discussiontoolspageinfo": {
    "threaditemshtml": [
      {
        "type": "heading",
        "headline": "T",
        "replies": [
          {"type": "comment", "author": "Alice", "timestamp": "2026-01-10T14:30:05Z", "level": 1, "html": ["<p>one</p>"]},
          {"type": "comment", "author": "Alice", "timestamp": "2026-01-10T14:30:40Z", "level": 1, "html": ["<p>two</p>"]}
        ]
      }
    ]
  }
}`
	snapshot, err := DecodeSnapshot(testRawRevision(1, payload))
	require.NoError(t, err)
	require.Len(t, snapshot.Comments, 2)
	assert.Equal(t, "202601101430_Alice", snapshot.Comments[0].ID)
	assert.Equal(t, "202601101430_Alice_2", snapshot.Comments[1].ID)
}

func TestDecodeSnapshot_ReplyToUnsignedKeepsParentAuthor(t *testing.T) {
	payload := `{
  "discussiontoolspageinfo": {
    "threaditemshtml": [
      {
        "type": "heading",
        "headline": "T",
        "replies": [
          {
            "type": "comment", "author": "Dave", "timestamp": "", "level": 1,
            "html": ["<p>unsigned musing</p>"],
            "replies": [
              {
                "type": "comment", "author": "Erin", "timestamp": "2026-01-10T14:40:00Z",
                "level": 2, "html": ["<p>replying anyway</p>"]
              }
            ]
          }
        ]
      }
    ]
  }
}`
	snapshot, err := DecodeSnapshot(testRawRevision(1, payload))
	require.NoError(t, err)
	require.Len(t, snapshot.Comments, 2)

	erin := snapshot.Comments[1]
	assert.Empty(t, erin.ParentID)
	assert.True(t, erin.ParentUnsigned)
	assert.Equal(t, "Dave", erin.ParentAuthor)

	// A section-level comment carries neither marker.
	dave := snapshot.Comments[0]
	assert.False(t, dave.ParentUnsigned)
	assert.Empty(t, dave.ParentAuthor)
}

func TestDecodeSnapshot_NestedHeadingAncestors(t *testing.T) {
	payload := `{
  "discussiontoolspageinfo": {
    "threaditemshtml": [
      {
        "type": "heading",
        "headline": "Outer",
        "headingLevel": 2,
        "replies": [
          {
            "type": "heading",
            "headline": "Inner",
            "headingLevel": 3,
            "replies": []
          }
        ]
      }
    ]
  }
}`
	snapshot, err := DecodeSnapshot(testRawRevision(1, payload))
	require.NoError(t, err)
	require.Len(t, snapshot.Sections, 2)
	assert.Empty(t, snapshot.Sections[0].Ancestors)
	assert.Equal(t, []string{"Outer"}, snapshot.Sections[1].Ancestors)
}

func TestDecodeSnapshot_OutdentedLogicalLevelClamped(t *testing.T) {
	payload := `{
  "discussiontoolspageinfo": {
    "threaditemshtml": [
      {
        "type": "heading",
        "headline": "T",
        "replies": [
          {
            "type": "comment", "author": "Alice", "timestamp": "2026-01-10T14:30:00Z",
            "level": 1, "html": ["<p>root</p>"],
            "replies": [
              {
                "type": "comment", "author": "Bob", "timestamp": "2026-01-10T14:40:00Z",
                "level": 1, "outdented": true, "html": ["<p>outdented reply</p>"]
              }
            ]
          }
        ]
      }
    ]
  }
}`
	snapshot, err := DecodeSnapshot(testRawRevision(1, payload))
	require.NoError(t, err)
	require.Len(t, snapshot.Comments, 2)

	bob := snapshot.Comments[1]
	assert.True(t, bob.Outdented)
	assert.Equal(t, "202601101430_Alice", bob.ParentID)
	// The rendered level caps the logical one.
	assert.Equal(t, 1, bob.LogicalLevel)
}

func TestDecodeSnapshot_MalformedJSON(t *testing.T) {
	_, err := DecodeSnapshot(testRawRevision(1, "{not json"))
	assert.Error(t, err)
}
