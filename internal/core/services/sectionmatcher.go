package services

import (
	"sort"

	"github.com/jwbth/talkwatch/internal/core/domain"
)

// Section score weights. Headline equality dominates; index proximity is a
// weak signal because sections move when earlier ones are archived.
const (
	sectionHeadlineWeight  = 1.0
	sectionAncestorsWeight = 0.5
	sectionIndexWeight     = 0.25
	sectionOldestWeight    = 1.0

	// sectionScoreMin is the minimal score below which no match is
	// returned.
	sectionScoreMin = 1.0
)

// SectionMatcher locates the live section corresponding to a section-like
// query. Used for live-session restore and, inside the comment matcher
// path, to correlate a new snapshot's sections to the current ones.
type SectionMatcher struct{}

// NewSectionMatcher creates a section matcher.
func NewSectionMatcher() *SectionMatcher {
	return &SectionMatcher{}
}

// Match returns the single best candidate for the query, or false when no
// candidate reaches the minimal score. An exact external-id match wins
// outright.
func (m *SectionMatcher) Match(query domain.SectionQuery, candidates []domain.Section) (*domain.Section, bool) {
	if query.ExternalID != "" {
		for i := range candidates {
			if candidates[i].ExternalID == query.ExternalID {
				return &candidates[i], true
			}
		}
	}

	best := -1
	bestScore := 0.0
	for i := range candidates {
		score := m.score(query, &candidates[i])
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 || bestScore < sectionScoreMin {
		return nil, false
	}
	return &candidates[best], true
}

// MatchAll correlates current sections to other sections pairwise, for the
// comment matcher's same-section signal. Each other section is claimed by
// at most one current section; ties go to the lower current index.
func (m *SectionMatcher) MatchAll(current, other []domain.Section) domain.SectionMatchSet {
	type pair struct {
		currentIdx int
		otherIdx   int
		score      float64
	}
	var pairs []pair
	for i := range current {
		query := current[i].QueryFor()
		for j := range other {
			if query.ExternalID != "" && query.ExternalID == other[j].ExternalID {
				pairs = append(pairs, pair{i, j, sectionScoreMin * 100})
				continue
			}
			if score := m.score(query, &other[j]); score >= sectionScoreMin {
				pairs = append(pairs, pair{i, j, score})
			}
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool { return pairs[a].score > pairs[b].score })

	set := make(domain.SectionMatchSet, len(current))
	claimed := make(map[int]bool, len(other))
	for _, p := range pairs {
		if _, done := set[current[p.currentIdx].Index]; done {
			continue
		}
		if claimed[p.otherIdx] {
			continue
		}
		set[current[p.currentIdx].Index] = other[p.otherIdx].Index
		claimed[p.otherIdx] = true
	}
	return set
}

// score accumulates the weighted section similarity.
func (m *SectionMatcher) score(query domain.SectionQuery, candidate *domain.Section) float64 {
	score := 0.0
	if query.Headline != "" && query.Headline == candidate.Headline {
		score += sectionHeadlineWeight
	}
	score += sectionAncestorsWeight * ancestorOverlap(query.Ancestors, candidate.Ancestors)
	score += sectionIndexWeight * indexProximity(query.Index, candidate.Index)
	if query.OldestCommentID != "" && query.OldestCommentID == candidate.OldestCommentID {
		score += sectionOldestWeight
	}
	return score
}

// ancestorOverlap returns the shared prefix proportion of two headline
// chains. Chains are compared from the closest ancestor outward.
func ancestorOverlap(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	shared := 0
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			break
		}
		shared++
	}
	return float64(shared) / float64(longest)
}

// indexProximity decays from 1 at equal indexes toward 0 as they drift.
func indexProximity(a, b int) float64 {
	d := a - b
	if d < 0 {
		d = -d
	}
	return 1.0 / float64(1+d)
}
