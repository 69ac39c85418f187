package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveCommentID(t *testing.T) {
	date := time.Date(2026, 1, 10, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name           string
		author         string
		disambiguation int
		want           string
	}{
		{"plain", "Alice", 0, "202601101430_Alice"},
		{"spaces replaced", "Jane Doe", 0, "202601101430_Jane_Doe"},
		{"trimmed", "  Alice ", 0, "202601101430_Alice"},
		{"second in minute", "Alice", 1, "202601101430_Alice_2"},
		{"third in minute", "Alice", 2, "202601101430_Alice_3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveCommentID(date, tt.author, tt.disambiguation))
		})
	}
}

func TestDeriveCommentID_ConvertsToUTC(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*60*60)
	date := time.Date(2026, 1, 10, 16, 30, 0, 0, zone)

	assert.Equal(t, "202601101430_Alice", DeriveCommentID(date, "Alice", 0))
}

func TestDisambiguateCommentIDs(t *testing.T) {
	date := time.Date(2026, 1, 10, 14, 30, 0, 0, time.UTC)
	later := date.Add(time.Minute)
	comments := []Comment{
		{Index: 0, AuthorName: "Alice", Date: &date},
		{Index: 1, AuthorName: "Alice", Date: &date},
		{Index: 2, AuthorName: "Alice", Date: &later},
		{Index: 3}, // unsigned
	}

	DisambiguateCommentIDs(comments)

	assert.Equal(t, "202601101430_Alice", comments[0].ID)
	assert.Equal(t, "202601101430_Alice_2", comments[1].ID)
	assert.Equal(t, "202601101431_Alice", comments[2].ID)
	assert.Empty(t, comments[3].ID)
}

func TestSameAuthorAndDate(t *testing.T) {
	date := time.Date(2026, 1, 10, 14, 30, 0, 0, time.UTC)
	sameInstant := date.In(time.FixedZone("UTC+2", 2*60*60))
	other := date.Add(time.Second)

	a := Comment{AuthorName: "Alice", Date: &date}

	assert.True(t, a.SameAuthorAndDate(&Comment{AuthorName: "Alice", Date: &sameInstant}))
	assert.False(t, a.SameAuthorAndDate(&Comment{AuthorName: "Bob", Date: &date}))
	assert.False(t, a.SameAuthorAndDate(&Comment{AuthorName: "Alice", Date: &other}))
	assert.False(t, a.SameAuthorAndDate(&Comment{AuthorName: "Alice"}))

	unsigned := Comment{AuthorName: "Alice"}
	assert.False(t, unsigned.SameAuthorAndDate(&a))
}

func TestIsDescendantOf(t *testing.T) {
	comments := []Comment{
		{ID: "root"},
		{ID: "child", ParentID: "root"},
		{ID: "grandchild", ParentID: "child"},
		{ID: "other"},
	}
	byID := make(map[string]*Comment)
	for i := range comments {
		byID[comments[i].ID] = &comments[i]
	}

	assert.True(t, byID["child"].IsDescendantOf("root", byID))
	assert.True(t, byID["grandchild"].IsDescendantOf("root", byID))
	assert.False(t, byID["other"].IsDescendantOf("root", byID))
	assert.False(t, byID["root"].IsDescendantOf("root", byID))
}

func TestIsDescendantOf_CycleTerminates(t *testing.T) {
	comments := []Comment{
		{ID: "a", ParentID: "b"},
		{ID: "b", ParentID: "a"},
	}
	byID := map[string]*Comment{"a": &comments[0], "b": &comments[1]}

	assert.False(t, comments[0].IsDescendantOf("missing", byID))
}

func TestSnapshotValidate(t *testing.T) {
	date := time.Date(2026, 1, 10, 14, 30, 0, 0, time.UTC)

	valid := Snapshot{Comments: []Comment{
		{ID: "a", Index: 0, Date: &date},
		{ID: "b", Index: 2, Date: &date},
	}}
	require.NoError(t, valid.Validate())

	outOfOrder := Snapshot{Comments: []Comment{
		{ID: "a", Index: 1},
		{ID: "b", Index: 0},
	}}
	assert.ErrorIs(t, outOfOrder.Validate(), ErrInvalidInput)

	duplicate := Snapshot{Comments: []Comment{
		{ID: "a", Index: 0},
		{ID: "a", Index: 1},
	}}
	assert.ErrorIs(t, duplicate.Validate(), ErrInvalidInput)
}

func TestSnapshotSectionAt(t *testing.T) {
	s := Snapshot{Sections: []Section{
		{Headline: "First", Index: 0},
		{Headline: "Second", Index: 1},
	}}

	require.NotNil(t, s.SectionAt(1))
	assert.Equal(t, "Second", s.SectionAt(1).Headline)
	assert.Nil(t, s.SectionAt(7))
}
