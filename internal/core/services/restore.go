package services

import (
	"github.com/jwbth/talkwatch/internal/core/domain"
)

// RestoreTarget maps a navigation target from the current snapshot onto
// the other one, so a session can land where the viewer was after the page
// updates. A comment target follows its match; when the comment is gone or
// the match is low-confidence it degrades to the enclosing section, and a
// section with no counterpart degrades to the page.
func RestoreTarget(target domain.Target, other *domain.Snapshot, matches domain.MatchSet, sectionMatches domain.SectionMatchSet) domain.Target {
	switch target.Kind() {
	case domain.TargetComment:
		if match, ok := matches.Lookup(target.TargetID()); ok && match.Matched() && !match.PoorMatch {
			if c, found := other.CommentsByID()[match.OtherID]; found {
				return domain.CommentTarget{Comment: *c}
			}
		}
		return restoreSection(target.SectionIndex(), other, sectionMatches)
	case domain.TargetSection:
		return restoreSection(target.SectionIndex(), other, sectionMatches)
	default:
		return domain.PageTarget{}
	}
}

// restoreSection degrades a section index to its counterpart, or the page.
func restoreSection(index int, other *domain.Snapshot, sectionMatches domain.SectionMatchSet) domain.Target {
	if mapped, ok := sectionMatches[index]; ok {
		if s := other.SectionAt(mapped); s != nil {
			return domain.SectionTarget{Section: *s}
		}
	}
	return domain.PageTarget{}
}
