package announce

import (
	"fmt"
	"strings"
)

// promptTemplates maps each trigger keyword to its rendered prompt form.
// The %s placeholder receives the public link.
var promptTemplates = map[string]string{
	KeywordAnnounce: "🔗 Подробнее: %s",
	KeywordPoll:     "🗳 Голосование: %s",
}

// promptMarkers are the fixed prefixes identifying a previously rendered
// prompt segment inside announcement text.
var promptMarkers = []string{
	"🔗 Подробнее:",
	"🗳 Голосование:",
}

// RenderPrompt renders the prompt segment for a keyword and link. An
// unrecognized or empty keyword falls back to FallbackKeyword's template.
func RenderPrompt(keyword, link string) string {
	tmpl, ok := promptTemplates[keyword]
	if !ok {
		tmpl = promptTemplates[FallbackKeyword]
	}
	return fmt.Sprintf(tmpl, link)
}

// StripPrompt removes a previously rendered prompt segment from the end of
// text, returning the remaining text and whether a segment was found. When
// the entire text is itself a prompt, the cleaned text is empty.
func StripPrompt(text string) (string, bool) {
	if idx := strings.LastIndex(text, "\n\n"); idx >= 0 {
		if startsWithMarker(text[idx+2:]) {
			return text[:idx], true
		}
	}
	if startsWithMarker(text) {
		return "", true
	}
	return text, false
}

// MergePrompt appends a rendered prompt segment to base text, separated by
// a blank line. Repeated strip/merge cycles converge to a single segment.
func MergePrompt(base, segment string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return segment
	}
	return base + "\n\n" + segment
}

func startsWithMarker(s string) bool {
	for _, m := range promptMarkers {
		if strings.HasPrefix(s, m) {
			return true
		}
	}
	return false
}
