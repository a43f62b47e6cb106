package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	xhtml "golang.org/x/net/html"
)

var (
	urlRE        = regexp.MustCompile(`https?://\S+`)
	mentionTagRE = regexp.MustCompile(`[#@]\w+`)
	editNoticeRE = regexp.MustCompile(`(?i)this tweet was edited at\s.*$`)
	hspaceRE     = regexp.MustCompile(`[ \t\f\v]+`)
	anySpaceRE   = regexp.MustCompile(`\s+`)
	multiBlankRE = regexp.MustCompile(`\n{3,}`)
)

// NormalizeWhitespace collapses runs of horizontal whitespace to a single
// space, collapses three or more newlines to two, and trims the result.
func NormalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = hspaceRE.ReplaceAllString(s, " ")
	s = multiBlankRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// CollapseWhitespace reduces every whitespace run to a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(anySpaceRE.ReplaceAllString(s, " "))
}

// StripMarkup extracts the text content of an HTML fragment, dropping
// script, style and noscript subtrees. Malformed markup never fails; the
// tokenizer emits whatever text it can recover.
func StripMarkup(s string) string {
	z := xhtml.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			return b.String()
		case xhtml.StartTagToken:
			name, _ := z.TagName()
			if skippedTag(string(name)) {
				skip++
			}
		case xhtml.EndTagToken:
			name, _ := z.TagName()
			if skippedTag(string(name)) && skip > 0 {
				skip--
			}
		case xhtml.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte('\n')
			}
		}
	}
}

func skippedTag(name string) bool {
	return name == "script" || name == "style" || name == "noscript"
}

// NormalizeText flattens a possibly HTML-bearing string into plain prose:
// tags are replaced by spaces, entities unescaped, whitespace collapsed.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<&") {
		s = xhtml.UnescapeString(tagRE.ReplaceAllString(s, " "))
	}
	return CollapseWhitespace(s)
}

var tagRE = regexp.MustCompile(`<[^>]+>`)

// DedupKey hashes text into a stable hex digest, insensitive to case,
// entity encoding and whitespace run length.
func DedupKey(s string) string {
	norm := strings.ToLower(CollapseWhitespace(xhtml.UnescapeString(s)))
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

// CleanSocialText canonicalizes a social-media post body: entities
// unescaped, URLs and @mentions/#hashtags removed, edit notices and
// directionality marks stripped, all whitespace collapsed.
func CleanSocialText(s string) string {
	if s == "" {
		return ""
	}
	s = xhtml.UnescapeString(s)
	s = urlRE.ReplaceAllString(s, "")
	s = mentionTagRE.ReplaceAllString(s, "")
	s = editNoticeRE.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "‏", "")
	s = strings.ReplaceAll(s, "‎", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return CollapseWhitespace(s)
}

// Timestamp layouts seen across archive generations, most specific first.
var flexibleTimeLayouts = []string{
	"Mon Jan 02 15:04:05 -0700 2006",
	time.RFC3339,
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseFlexibleTime parses the timestamp formats that occur in archive
// exports and API payloads. Naive timestamps are taken as UTC.
func ParseFlexibleTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range flexibleTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
