package services

import (
	"sort"
	"strings"

	"github.com/jwbth/talkwatch/internal/core/domain"
)

// Comment score weights and the empirically chosen discard threshold that
// separates "plausibly the same comment" from noise.
const (
	parentWeight         = 1.0
	parentWeightUnsigned = 0.75
	sectionWeight        = 1.0
	fragmentWeight       = 1.0
	wordWeight           = 1.0
	indexWeight          = 0.25

	// matchScoreMin rejects candidate pairs scoring at or below it.
	matchScoreMin = 1.66
)

// minWordLength filters noise tokens out of word-overlap scoring.
const minWordLength = 3

// CommentMatcher computes the fuzzy correspondence between two comment
// snapshots. Match is a pure function: results come back as a MatchSet and
// the input records are never touched.
type CommentMatcher struct {
	sections *SectionMatcher

	// wordOverlapFn is swappable for tests verifying the identical-
	// content short-circuit.
	wordOverlapFn func(a, b string) float64
}

// NewCommentMatcher creates a comment matcher backed by the given section
// matcher.
func NewCommentMatcher(sections *SectionMatcher) *CommentMatcher {
	return &CommentMatcher{
		sections:      sections,
		wordOverlapFn: wordOverlap,
	}
}

// Match enriches the current snapshot with pointers into the other one.
// The direction is always current → other; the same routine is reused with
// arguments swapped for before/after visit comparisons. sectionMatches maps
// current section indexes to other ones and may be nil.
//
// The result is recomputed wholesale on every call; ties among equal
// scores go to the first candidate in document order (stable sort).
func (m *CommentMatcher) Match(current, other []domain.Comment, sectionMatches domain.SectionMatchSet) domain.MatchSet {
	set := make(domain.MatchSet, len(current))
	sameCount := len(current) == len(other)

	ctx := &scoreContext{
		sectionMatches: sectionMatches,
		sameCount:      sameCount,
	}

	for j := range other {
		o := &other[j]
		candidates := bucketByAuthorAndDate(current, o)
		if len(candidates) == 0 {
			// Unsigned comments never match via the bucket step.
			continue
		}

		type scored struct {
			comment *domain.Comment
			score   float64
		}
		pairs := make([]scored, 0, len(candidates))
		for _, c := range candidates {
			pairs = append(pairs, scored{c, m.score(ctx, c, o)})
		}

		if len(pairs) == 1 {
			// A lone author+date candidate is tentatively the match even
			// below the threshold, but never displaces a better-scoring
			// assignment from an earlier other comment.
			m.assign(set, pairs[0].comment.ID, o.ID, pairs[0].score)
			continue
		}

		// Keep only pairs strictly above the discard threshold, best
		// first. The sort is stable, so equal scores keep document order.
		kept := pairs[:0]
		for _, p := range pairs {
			if p.score > matchScoreMin {
				kept = append(kept, p)
			}
		}
		sort.SliceStable(kept, func(a, b int) bool { return kept[a].score > kept[b].score })

		for rank, p := range kept {
			if rank == 0 {
				m.assign(set, p.comment.ID, o.ID, p.score)
				continue
			}
			// A plausible-but-unchosen candidate signals ambiguity on
			// that current comment rather than silently doing nothing.
			entry := set[p.comment.ID]
			entry.PoorMatch = true
			set[p.comment.ID] = entry
		}
	}

	m.fillParentMatches(set, other)
	return set
}

// assign records a match unless the current comment already holds a
// strictly better-scoring one from an earlier pass iteration.
func (m *CommentMatcher) assign(set domain.MatchSet, currentID, otherID string, score float64) {
	if currentID == "" {
		return
	}
	existing, ok := set[currentID]
	if ok && existing.Matched() && existing.Score >= score {
		return
	}
	poor := existing.PoorMatch
	set[currentID] = domain.Match{OtherID: otherID, Score: score, PoorMatch: poor}
}

// fillParentMatches is a derived projection run after matching completes:
// for each matched pair, record the other-side parent id when that parent
// is itself matched by some current comment.
func (m *CommentMatcher) fillParentMatches(set domain.MatchSet, other []domain.Comment) {
	otherByID := make(map[string]*domain.Comment, len(other))
	for i := range other {
		if other[i].ID != "" {
			otherByID[other[i].ID] = &other[i]
		}
	}
	for currentID, match := range set {
		if !match.Matched() {
			continue
		}
		o, ok := otherByID[match.OtherID]
		if !ok || o.ParentID == "" {
			continue
		}
		if set.OtherMatched(o.ParentID) {
			match.ParentOtherID = o.ParentID
			set[currentID] = match
		}
	}
}

// bucketByAuthorAndDate finds all current comments sharing the other
// comment's exact author and timestamp. Comments with no date are left out
// entirely; unsigned comments therefore stay unmatched, a known limitation
// rather than a bug to silently fix.
func bucketByAuthorAndDate(current []domain.Comment, o *domain.Comment) []*domain.Comment {
	if o.Date == nil {
		return nil
	}
	var out []*domain.Comment
	for i := range current {
		if current[i].SameAuthorAndDate(o) {
			out = append(out, &current[i])
		}
	}
	return out
}

// scoreContext carries the per-run inputs the pair scorer needs.
type scoreContext struct {
	sectionMatches domain.SectionMatchSet
	sameCount      bool
}

// score computes the weighted similarity of one (candidate, other) pair.
func (m *CommentMatcher) score(ctx *scoreContext, c, o *domain.Comment) float64 {
	score := 0.0

	if matched, weight := parentCorresponds(c, o); matched {
		score += weight
	}
	if sectionCorresponds(ctx, c, o) {
		score += sectionWeight
	}

	fragments := fragmentOverlap(c.TextFragments, o.TextFragments)
	score += fragmentWeight * fragments
	if fragments < 1 {
		// Identical fragments prove identical content; word overlap is
		// skipped in that case.
		score += wordWeight * m.wordOverlapFn(c.ComparisonText, o.ComparisonText)
	} else {
		score += wordWeight
	}

	if ctx.sameCount && c.Index == o.Index {
		// Only counted when total counts agree, a coarse guard against
		// coincidental index equality after structural change.
		score += indexWeight
	}
	return score
}

// parentCorresponds reports whether the two comments' parents correspond,
// and with which weight. Parents carrying derived ids compare by id at
// full weight; a parent without an id (unsigned) degrades to author
// comparison at reduced weight. A section-level reply and a reply to an
// unsigned comment never correspond.
func parentCorresponds(c, o *domain.Comment) (bool, float64) {
	switch {
	case c.ParentID != "" && o.ParentID != "":
		return c.ParentID == o.ParentID, parentWeight
	case c.ParentUnsigned && o.ParentUnsigned:
		return c.ParentAuthor == o.ParentAuthor, parentWeightUnsigned
	case c.ParentID == "" && o.ParentID == "" && !c.ParentUnsigned && !o.ParentUnsigned:
		// Both reply directly to a section.
		return true, parentWeight
	default:
		return false, 0
	}
}

// sectionCorresponds reports whether the enclosing sections' headlines
// match, using the section correspondence when available and falling back
// to index equality.
func sectionCorresponds(ctx *scoreContext, c, o *domain.Comment) bool {
	if c.SectionIndex < 0 || o.SectionIndex < 0 {
		return c.SectionIndex == o.SectionIndex
	}
	if ctx.sectionMatches != nil {
		mapped, ok := ctx.sectionMatches[c.SectionIndex]
		return ok && mapped == o.SectionIndex
	}
	return c.SectionIndex == o.SectionIndex
}

// fragmentOverlap returns the fraction of serialized HTML fragments that
// are byte-identical pairwise, over the longer fragment list.
func fragmentOverlap(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	same := 0
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			same++
		}
	}
	return float64(same) / float64(longest)
}

// wordOverlap is the Jaccard-style token-set overlap of two comparison
// texts, over words of at least minWordLength runes.
func wordOverlap(a, b string) float64 {
	wordsA := tokenSet(a)
	wordsB := tokenSet(b)
	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1.0
	}
	union := len(wordsB)
	shared := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			shared++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

// tokenSet lowercases and splits comparison text into its word set.
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	}) {
		if len([]rune(w)) >= minWordLength {
			set[w] = struct{}{}
		}
	}
	return set
}

func isWordRune(r rune) bool {
	return r == '_' || r == '\'' ||
		(r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		r > 127
}
