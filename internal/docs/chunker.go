package docs

import (
	"regexp"
	"strings"
)

var (
	paragraphRE = regexp.MustCompile(`\n\s*\n`)
	chunkURLRE  = regexp.MustCompile(`https?://\S+`)
	wordRE      = regexp.MustCompile(`[\p{L}][\p{L}\p{N}'’-]{2,}`)
)

// maxTopicKeywords caps how many keywords feed a synthetic prompt.
const maxTopicKeywords = 8

// SplitParagraphs splits normalized text on blank lines.
func SplitParagraphs(text string) []string {
	parts := paragraphRE.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TopicKeywords extracts up to maxTopicKeywords distinct lower-cased words
// from a paragraph, first-seen order, for the synthetic prompt. URLs never
// contribute keywords. Falls back to "general" for word-free paragraphs.
func TopicKeywords(text string) []string {
	text = chunkURLRE.ReplaceAllString(text, "")
	var out []string
	seen := make(map[string]bool)
	for _, w := range wordRE.FindAllString(text, -1) {
		w = strings.ToLower(w)
		if seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == maxTopicKeywords {
			break
		}
	}
	if len(out) == 0 {
		return []string{"general"}
	}
	return out
}
