package internal

import (
	"encoding/json"
	"fmt"
)

// Canonical message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultStylePrompt is the generic prompt paired with standalone posts when
// no reply chain is available. Threaded through call sites as configuration.
const DefaultStylePrompt = "Write a post in my style."

// Message is a single conversational turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Record is one SFT example: an ordered message sequence plus source-specific
// metadata. Metadata keys are serialized as siblings of "messages" so every
// adapter's output is a flat JSON object per line.
type Record struct {
	Messages []Message
	Meta     map[string]any

	// SourceFile tags where a record was read from during unification.
	// In-memory only, never serialized.
	SourceFile string
}

// MarshalJSON flattens metadata keys next to the messages array.
func (r Record) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(r.Meta)+1)
	for k, v := range r.Meta {
		if k != "messages" {
			obj[k] = v
		}
	}
	obj["messages"] = r.Messages
	return json.Marshal(obj)
}

// UnmarshalJSON splits the "messages" array from the remaining metadata keys.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	msgsRaw, ok := raw["messages"]
	if !ok {
		return fmt.Errorf("record has no messages field")
	}
	if err := json.Unmarshal(msgsRaw, &r.Messages); err != nil {
		return fmt.Errorf("failed to parse messages: %w", err)
	}
	r.Meta = nil
	for k, v := range raw {
		if k == "messages" {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			continue
		}
		if r.Meta == nil {
			r.Meta = make(map[string]any)
		}
		r.Meta[k] = val
	}
	return nil
}

// MetaString returns a metadata value coerced to string, or "" if absent.
func (r *Record) MetaString(key string) string {
	v, ok := r.Meta[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		// JSON numbers decode as float64; ids are integral in practice.
		return fmt.Sprintf("%.0f", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// LastAssistant returns the final assistant message, or nil.
func (r *Record) LastAssistant() *Message {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleAssistant {
			return &r.Messages[i]
		}
	}
	return nil
}
