package apisync

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/iksnae/persona-sft/internal"
	"github.com/iksnae/persona-sft/internal/dataset"
)

// Options controls an incremental timeline sync.
type Options struct {
	Username       string
	Out            string
	StatePath      string
	MinLength      int
	ExcludeSources map[string]bool
	IncludeReplies bool
	ExcludeQuotes  bool
	AssistantRole  string
	StylePrompt    string
}

// Stats summarizes a sync run.
type Stats struct {
	Fetched  int
	Appended int
}

// Sync appends only genuinely new items since the last successful
// checkpoint. The existing output file, not the checkpoint, is the
// authority on what was already emitted: after a partial failure the
// output scan prevents double emission even if the checkpoint is stale.
func Sync(ctx context.Context, client *Client, opts Options) (*Stats, error) {
	state := LoadState(opts.StatePath)
	existing, err := scanExistingIDs(opts.Out)
	if err != nil {
		return nil, err
	}

	internal.LogInfo("Syncing posts for @%s since %s", opts.Username, state.StartTime)
	userID, err := client.LookupUserID(ctx, opts.Username)
	if err != nil {
		return nil, err
	}

	tweets, fetchErr := client.FetchTimeline(ctx, userID, state.StartTime, opts.IncludeReplies)
	if fetchErr != nil {
		// Partial pages are still processed, never discarded.
		internal.LogWarn("Fetch loop aborted: %v", fetchErr)
	}
	stats := &Stats{Fetched: len(tweets)}

	var examples []internal.Record
	newest := state.StartTime
	for i := range tweets {
		t := &tweets[i]
		if t.ID == "" || existing[t.ID] {
			continue
		}
		if opts.ExcludeQuotes && t.IsQuote() {
			continue
		}
		if opts.ExcludeSources[t.Source] {
			continue
		}

		text := internal.CleanSocialText(t.Text)
		if utf8.RuneCountInString(text) < opts.MinLength {
			continue
		}

		examples = append(examples, internal.Record{
			Messages: []internal.Message{
				{Role: internal.RoleUser, Content: opts.StylePrompt},
				{Role: opts.AssistantRole, Content: text},
			},
			Meta: map[string]any{"tweet_id": t.ID},
		})
		existing[t.ID] = true

		// ISO-8601 timestamps compare correctly as strings.
		if t.CreatedAt != "" && t.CreatedAt > newest {
			newest = t.CreatedAt
		}
	}

	if len(examples) == 0 {
		internal.LogInfo("No new posts to append")
		return stats, nil
	}

	if err := dataset.AppendJSONL(opts.Out, examples); err != nil {
		return nil, err
	}
	stats.Appended = len(examples)

	state.StartTime = advanceCheckpoint(newest)
	if err := state.Save(opts.StatePath); err != nil {
		return nil, err
	}
	internal.LogInfo("Sync complete, next sync starts from %s", state.StartTime)
	return stats, nil
}

// advanceCheckpoint moves the checkpoint one second past the newest observed
// timestamp so the next sync does not re-fetch the newest item. If the
// timestamp does not parse, it is carried forward verbatim.
func advanceCheckpoint(newest string) string {
	t, ok := internal.ParseFlexibleTime(newest)
	if !ok {
		return newest
	}
	return t.Add(time.Second).UTC().Format(time.RFC3339)
}

// scanExistingIDs reads the set of already-emitted item identities from the
// output file. Malformed lines are skipped.
func scanExistingIDs(out string) (map[string]bool, error) {
	ids := make(map[string]bool)
	f, err := os.Open(out)
	if err != nil {
		if os.IsNotExist(err) {
			return ids, nil
		}
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var row struct {
			TweetID any `json:"tweet_id"`
		}
		if err := json.Unmarshal(sc.Bytes(), &row); err != nil {
			continue
		}
		if id := idString(row.TweetID); id != "" {
			ids[id] = true
		}
	}
	// A partial trailing line from a killed run is not fatal.
	if err := sc.Err(); err != nil {
		internal.LogWarn("Stopped scanning %s early: %v", out, err)
	}
	return ids, nil
}

func idString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// Numeric ids are integral in practice.
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
