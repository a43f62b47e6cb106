package archive

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/iksnae/persona-sft/internal"
)

// retweetMarker prefixes the raw text of a repost.
const retweetMarker = "RT @"

// Tweet is the uniform intermediate record every archive generation and API
// payload is flattened into before filtering and example building.
type Tweet struct {
	ID        string
	Text      string
	CreatedAt time.Time
	ReplyToID string
	IsQuote   bool
	IsRetweet bool
	Lang      string
	SourceApp string
}

// rawTweet covers the field spellings seen across export generations. Older
// archives use integer ids; newer ones use *_str variants and full_text.
type rawTweet struct {
	ID              json.Number `json:"id"`
	IDStr           string      `json:"id_str"`
	Text            string      `json:"text"`
	FullText        string      `json:"full_text"`
	CreatedAt       string      `json:"created_at"`
	Lang            string      `json:"lang"`
	Source          string      `json:"source"`
	ReplyToID       json.Number `json:"in_reply_to_status_id"`
	ReplyToIDStr    string      `json:"in_reply_to_status_id_str"`
	IsQuoteStatus   bool        `json:"is_quote_status"`
	QuotedStatusIDs string      `json:"quoted_status_id_str"`

	ReferencedTweets []struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"referenced_tweets"`
}

func (r *rawTweet) id() string {
	if r.IDStr != "" {
		return r.IDStr
	}
	return r.ID.String()
}

func (r *rawTweet) replyToID() string {
	if r.ReplyToIDStr != "" {
		return r.ReplyToIDStr
	}
	if s := r.ReplyToID.String(); s != "" && s != "0" {
		return s
	}
	return ""
}

func (r *rawTweet) isQuote() bool {
	if r.IsQuoteStatus || r.QuotedStatusIDs != "" {
		return true
	}
	for _, ref := range r.ReferencedTweets {
		if ref.Type == "quoted" {
			return true
		}
	}
	return false
}

// Unify flattens a raw item into the intermediate Tweet shape, cleaning its
// text and parsing its timestamp. The retweet marker is checked on the
// cleaned text; reposts whose marker is consumed by mention stripping are
// caught later by the unify stage's closing-turn gate.
func (r *rawTweet) Unify() Tweet {
	raw := r.FullText
	if raw == "" {
		raw = r.Text
	}
	// An unparseable timestamp leaves the zero time, which sorts ahead of
	// every dated item.
	text := internal.CleanSocialText(raw)
	ts, _ := internal.ParseFlexibleTime(r.CreatedAt)
	return Tweet{
		ID:        r.id(),
		Text:      text,
		CreatedAt: ts,
		ReplyToID: r.replyToID(),
		IsQuote:   r.isQuote(),
		IsRetweet: strings.HasPrefix(text, retweetMarker),
		Lang:      r.Lang,
		SourceApp: parseSourceApp(r.Source),
	}
}

var anchorTextRE = regexp.MustCompile(`>([^<]+)<`)

// parseSourceApp extracts the client application name out of the HTML anchor
// the export stores in the source field.
func parseSourceApp(sourceHTML string) string {
	if sourceHTML == "" {
		return ""
	}
	if m := anchorTextRE.FindStringSubmatch(sourceHTML); m != nil {
		return internal.CleanSocialText(m[1])
	}
	return internal.CleanSocialText(internal.StripMarkup(sourceHTML))
}
