package archive

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iksnae/persona-sft/internal"
	"github.com/iksnae/persona-sft/internal/dataset"
)

// Options controls a one-shot archive import.
type Options struct {
	Out            string
	EvalFraction   float64
	IncludeReplies bool
	ExcludeQuotes  bool
	Dialog         bool // build reply-chain dialogs where possible
	ContextDepth   int  // max parents to walk per dialog
	AssistantRole  string
	StylePrompt    string
}

// Stats summarizes an archive import run.
type Stats struct {
	Loaded  int
	Kept    int
	Dialogs int
	Train   int
	Eval    int
}

// Process converts a static export into dialog and style examples. Filtering
// and ordering run before example building so reply chains resolve against
// the deduplicated batch.
func Process(archivePath string, opts Options) (*Stats, error) {
	tweets, err := LoadArchive(archivePath)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Loaded: len(tweets)}

	byID := make(map[string]Tweet, len(tweets))
	for _, tw := range tweets {
		if tw.ID != "" {
			byID[tw.ID] = tw
		}
	}

	// Pre-filter dedup on raw item text. Independent of the unify stage's
	// assistant-turn dedup: this one runs before any message is built.
	var kept []Tweet
	seen := make(map[string]bool)
	for _, tw := range tweets {
		if tw.IsRetweet {
			continue
		}
		if opts.ExcludeQuotes && tw.IsQuote {
			continue
		}
		if !opts.IncludeReplies && tw.ReplyToID != "" {
			continue
		}
		key := internal.DedupKey(tw.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, tw)
	}
	stats.Kept = len(kept)

	// Missing timestamps sort as the epoch; ties keep input order.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].CreatedAt.Before(kept[j].CreatedAt)
	})

	var rows []internal.Record
	for _, tw := range kept {
		var rec *internal.Record
		if opts.Dialog && tw.ReplyToID != "" {
			rec = makeDialogExample(tw, byID, opts.ContextDepth, opts.AssistantRole)
			if rec != nil {
				stats.Dialogs++
			}
		}
		if rec == nil {
			rec = makeStyleExample(tw, opts.StylePrompt, opts.AssistantRole)
		}
		rows = append(rows, *rec)
	}

	if len(rows) == 0 {
		internal.LogWarn("No items to write after filtering")
		return stats, nil
	}

	nEval := 0
	if opts.EvalFraction > 0 {
		nEval = int(math.Round(float64(len(rows)) * opts.EvalFraction))
	}
	train, eval := rows, []internal.Record(nil)
	if nEval > 0 && nEval < len(rows) {
		train, eval = rows[:len(rows)-nEval], rows[len(rows)-nEval:]
	}

	if err := dataset.WriteJSONL(opts.Out, train); err != nil {
		return nil, err
	}
	stats.Train = len(train)

	if len(eval) > 0 {
		evalPath := evalPathFor(opts.Out)
		if err := dataset.WriteJSONL(evalPath, eval); err != nil {
			return nil, err
		}
		stats.Eval = len(eval)
	}
	return stats, nil
}

// makeDialogExample reconstructs a reply chain bottom-up and assigns
// alternating roles counting backward from the leaf, which is always the
// author's turn. Returns nil when the chain does not end on the assistant.
func makeDialogExample(tw Tweet, byID map[string]Tweet, maxContext int, assistantRole string) *internal.Record {
	chain := []Tweet{tw}
	current := tw
	for i := 0; i < maxContext; i++ {
		parent, ok := byID[current.ReplyToID]
		if current.ReplyToID == "" || !ok {
			break
		}
		chain = append(chain, parent)
		current = parent
	}

	// Root-first order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	msgs := make([]internal.Message, 0, len(chain))
	for i, item := range chain {
		role := assistantRole
		if (len(chain)-1-i)%2 == 1 {
			role = internal.RoleUser
		}
		msgs = append(msgs, internal.Message{Role: role, Content: item.Text})
	}
	if len(msgs) == 0 || msgs[len(msgs)-1].Role != assistantRole {
		return nil
	}
	return &internal.Record{
		Messages: msgs,
		Meta:     map[string]any{"tweet_id": tw.ID},
	}
}

// makeStyleExample pairs a generic prompt with the item text.
func makeStyleExample(tw Tweet, prompt, assistantRole string) *internal.Record {
	return &internal.Record{
		Messages: []internal.Message{
			{Role: internal.RoleUser, Content: prompt},
			{Role: assistantRole, Content: tw.Text},
		},
		Meta: map[string]any{"tweet_id": tw.ID},
	}
}

// evalPathFor suffixes the output stem with _eval.
func evalPathFor(out string) string {
	ext := filepath.Ext(out)
	stem := strings.TrimSuffix(out, ext)
	return fmt.Sprintf("%s_eval%s", stem, ext)
}
