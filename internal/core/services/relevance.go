package services

import (
	"strings"

	"github.com/jwbth/talkwatch/internal/core/domain"
)

// FilterRelevant trims new comments down to the ones the viewer cares
// about: muted authors are dropped, members of collapsed threads are
// dropped unless opted in, and the rest must be addressed to the viewer
// (their name appears in the text, or the comment replies to one of
// theirs) or sit under a subscribed headline. sections supplies headline
// lookup for the comments' snapshot; hiddenFn reports collapsed visibility
// and may be nil when no thread state applies.
func FilterRelevant(comments []domain.Comment, sections []domain.Section, cfg domain.WatchConfig, hiddenFn func(commentID string) bool) []domain.Comment {
	muted := make(map[string]bool, len(cfg.MutedAuthors))
	for _, a := range cfg.MutedAuthors {
		muted[a] = true
	}
	subscribed := make(map[string]bool, len(cfg.SubscribedHeadlines))
	for _, h := range cfg.SubscribedHeadlines {
		subscribed[h] = true
	}
	headlines := make(map[int]string, len(sections))
	for _, s := range sections {
		headlines[s.Index] = s.Headline
	}

	ownSuffix := ""
	if cfg.ViewerName != "" {
		ownSuffix = commentIDAuthorSuffix(cfg.ViewerName)
	}

	var out []domain.Comment
	for _, c := range comments {
		if muted[c.AuthorName] {
			continue
		}
		// A new reply lands inside a collapsed thread when its parent is
		// hidden, even before the reply itself is known to the tracker.
		if !cfg.IncludeCollapsed && hiddenFn != nil {
			if hiddenFn(c.ID) || (c.ParentID != "" && hiddenFn(c.ParentID)) {
				continue
			}
		}
		if relevantToViewer(&c, cfg.ViewerName, ownSuffix, subscribed, headlines) {
			out = append(out, c)
		}
	}
	return out
}

// relevantToViewer reports whether one comment addresses or interests the
// viewer.
func relevantToViewer(c *domain.Comment, viewer, ownSuffix string, subscribed map[string]bool, headlines map[int]string) bool {
	if viewer == "" {
		// No viewer identity configured: everything is relevant.
		return true
	}
	if strings.Contains(c.ComparisonText, viewer) {
		return true
	}
	if ownSuffix != "" && c.ParentID != "" && strings.HasSuffix(stripDisambiguation(c.ParentID), ownSuffix) {
		return true
	}
	if headline, ok := headlines[c.SectionIndex]; ok && subscribed[headline] {
		return true
	}
	return false
}

// commentIDAuthorSuffix is the author part a derived comment id ends with.
func commentIDAuthorSuffix(author string) string {
	return "_" + strings.ReplaceAll(strings.TrimSpace(author), " ", "_")
}

// stripDisambiguation removes a trailing _<n> counter from a derived
// comment id, leaving author names that end in digits intact.
func stripDisambiguation(id string) string {
	i := strings.LastIndexByte(id, '_')
	if i <= 0 || i == len(id)-1 {
		return id
	}
	for _, r := range id[i+1:] {
		if r < '0' || r > '9' {
			return id
		}
	}
	return id[:i]
}
