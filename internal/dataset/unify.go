package dataset

import (
	"math/rand"
	"strings"

	"github.com/iksnae/persona-sft/internal"
)

// UnifyOptions controls the unification stage.
type UnifyOptions struct {
	Shuffle            bool
	Seed               int64
	KeepKeys           []string // metadata keys copied to the output
	DropGenericPrompts bool
}

// UnifyResult summarizes one unification run.
type UnifyResult struct {
	TotalRead int
	Kept      int
	Metrics   Metrics
}

// Unify merges the input JSONL files into one normalized, alternation-valid,
// deduplicated dataset at out. Every upstream adapter's output passes through
// this gate before training.
func Unify(inputs []string, out string, opts UnifyOptions) (*UnifyResult, error) {
	rows, err := ReadJSONL(inputs)
	if err != nil {
		return nil, err
	}

	var kept []internal.Record
	seen := make(map[string]bool)
	for _, row := range rows {
		norm, ok := normalizeRecord(row, opts.KeepKeys)
		if !ok {
			continue
		}
		if opts.DropGenericPrompts {
			if last := lastUserTurn(norm.Messages); last != nil && IsGenericPrompt(last.Content) {
				continue
			}
		}
		key := recordDedupKey(norm.Messages)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, norm)
	}

	if opts.Shuffle {
		rng := rand.New(rand.NewSource(opts.Seed))
		rng.Shuffle(len(kept), func(i, j int) {
			kept[i], kept[j] = kept[j], kept[i]
		})
	}

	metrics := Analyze(kept)
	if err := WriteJSONL(out, kept); err != nil {
		return nil, err
	}
	return &UnifyResult{TotalRead: len(rows), Kept: len(kept), Metrics: metrics}, nil
}

// normalizeRecord maps roles to the canonical set, normalizes message text,
// applies the retweet gate and repairs turn alternation. The returned record
// keeps only whitelisted metadata keys.
func normalizeRecord(row internal.Record, keepKeys []string) (internal.Record, bool) {
	cleaned := make([]internal.Message, 0, len(row.Messages))
	for _, m := range row.Messages {
		if m.Content == "" {
			continue
		}
		content := internal.NormalizeText(m.Content)
		if content == "" {
			continue
		}
		cleaned = append(cleaned, internal.Message{Role: mapRole(m.Role), Content: content})
	}
	if len(cleaned) == 0 {
		return internal.Record{}, false
	}

	// Reposts slip through some archives; reject on the closing turn.
	last := cleaned[len(cleaned)-1]
	if last.Role == internal.RoleAssistant && strings.HasPrefix(strings.ToLower(last.Content), "rt") {
		return internal.Record{}, false
	}

	fixed := enforceAlternation(cleaned)
	if fixed == nil {
		return internal.Record{}, false
	}

	out := internal.Record{Messages: fixed, SourceFile: row.SourceFile}
	for _, key := range keepKeys {
		if v, ok := row.Meta[key]; ok && key != "messages" {
			if out.Meta == nil {
				out.Meta = make(map[string]any)
			}
			out.Meta[key] = v
		}
	}
	return out, true
}

// mapRole folds arbitrary role labels onto {user, assistant, system}.
// "model" is a common alias for the assistant; anything unrecognized
// defaults to user.
func mapRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case internal.RoleAssistant, "model":
		return internal.RoleAssistant
	case internal.RoleSystem:
		return internal.RoleSystem
	default:
		return internal.RoleUser
	}
}

// enforceAlternation repairs a message sequence into the canonical
// [system?, user, assistant, user, assistant, ...] shape, ending on
// assistant. Returns nil when the invariant cannot be satisfied or fewer
// than 2 turns remain.
func enforceAlternation(msgs []internal.Message) []internal.Message {
	if len(msgs) == 0 {
		return nil
	}

	// Merge consecutive same-role turns.
	merged := make([]internal.Message, 0, len(msgs))
	for _, m := range msgs {
		if n := len(merged); n > 0 && merged[n-1].Role == m.Role {
			merged[n-1].Content = strings.TrimSpace(merged[n-1].Content + "\n\n" + m.Content)
		} else {
			merged = append(merged, m)
		}
	}

	// A conversation opening on the assistant gets a synthetic prompt.
	if merged[0].Role == internal.RoleAssistant {
		merged = append([]internal.Message{{Role: internal.RoleUser, Content: GenericPromptPlaceholder}}, merged...)
	}

	// It must close on the assistant; drop a trailing user/system turn.
	if merged[len(merged)-1].Role != internal.RoleAssistant {
		merged = merged[:len(merged)-1]
	}

	final := make([]internal.Message, 0, len(merged))
	if len(merged) > 0 && merged[0].Role == internal.RoleSystem {
		final = append(final, merged[0])
		merged = merged[1:]
	}
	if len(merged) == 0 || len(merged)%2 != 0 {
		return nil
	}
	for i, m := range merged {
		expected := internal.RoleUser
		if i%2 == 1 {
			expected = internal.RoleAssistant
		}
		if m.Role != expected {
			return nil
		}
		final = append(final, m)
	}
	if len(final) < 2 {
		return nil
	}
	return final
}

// recordDedupKey derives the record's dedup key from the final assistant
// turn, falling back to the whole stitched dialog when no assistant turn
// exists.
func recordDedupKey(msgs []internal.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == internal.RoleAssistant {
			return internal.DedupKey(msgs[i].Content)
		}
	}
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, internal.NormalizeText(m.Content))
	}
	return internal.DedupKey(strings.Join(parts, " "))
}

// GenericPromptPlaceholder is the synthetic user turn injected ahead of
// assistant-initial conversations.
const GenericPromptPlaceholder = "..."

// IsGenericPrompt reports whether a user prompt is a generic placeholder
// rather than a meaningful instruction.
func IsGenericPrompt(prompt string) bool {
	p := strings.ToLower(prompt)
	return p == GenericPromptPlaceholder || strings.HasPrefix(p, "write a")
}

func lastUserTurn(msgs []internal.Message) *internal.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == internal.RoleUser {
			return &msgs[i]
		}
	}
	return nil
}
