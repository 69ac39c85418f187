// Package wikihtml normalises serialized wiki comment HTML into the plain
// comparison text the matcher scores against. The output is used only for
// similarity scoring, never for identity.
package wikihtml

import (
	"html"
	"regexp"
	"strings"
)

// Pre-compiled regular expressions for HTML stripping performance.
var (
	scriptTag    = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag     = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	htmlComments = regexp.MustCompile(`(?s)<!--.*?-->`)
	// Signature wrappers and timestamp spans are presentation detail the
	// comparison text must not depend on.
	autosignSpan  = regexp.MustCompile(`(?is)<span[^>]*class="[^"]*(?:autosigned|cd-signature|ext-discussiontools-init-timestamp)[^"]*"[^>]*>.*?</span>`)
	blockElements = regexp.MustCompile(`(?i)</(p|div|li|dd|dl|ul|ol|blockquote|pre|table|tr)>`)
	brTags        = regexp.MustCompile(`(?i)<br\s*/?>`)
	allTags       = regexp.MustCompile(`<[^>]+>`)
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
	multiNewlines = regexp.MustCompile(`\n{2,}`)
)

// ComparisonText renders one comment's serialized HTML fragments as the
// normalised plain text used for word-overlap scoring.
func ComparisonText(fragments []string) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if text := stripHTML(f); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

// stripHTML converts one HTML fragment to plain text.
func stripHTML(fragment string) string {
	text := fragment
	text = scriptTag.ReplaceAllString(text, "")
	text = styleTag.ReplaceAllString(text, "")
	text = htmlComments.ReplaceAllString(text, "")
	text = autosignSpan.ReplaceAllString(text, "")

	// Preserve block boundaries as newlines before dropping tags.
	text = blockElements.ReplaceAllString(text, "\n")
	text = brTags.ReplaceAllString(text, "\n")
	text = allTags.ReplaceAllString(text, "")

	text = html.UnescapeString(text)
	text = multiSpaces.ReplaceAllString(text, " ")
	text = multiNewlines.ReplaceAllString(text, "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
