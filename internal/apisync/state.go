package apisync

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/iksnae/persona-sft/internal"
)

// earliestStartTime is the checkpoint used when no prior state exists.
const earliestStartTime = "1970-01-01T00:00:00Z"

// SyncState is the persisted checkpoint for the incremental API adapter.
type SyncState struct {
	StartTime string `json:"start_time"`
	LastRunAt string `json:"last_run_at,omitempty"`
}

// LoadState reads the checkpoint from path. A missing or corrupt state file
// is treated as no prior state.
func LoadState(path string) SyncState {
	def := SyncState{StartTime: earliestStartTime}
	data, err := os.ReadFile(path)
	if err != nil {
		return def
	}
	var s SyncState
	if err := json.Unmarshal(data, &s); err != nil {
		internal.LogWarn("Ignoring corrupt state file %s: %v", path, err)
		return def
	}
	if s.StartTime == "" {
		s.StartTime = earliestStartTime
	}
	return s
}

// SaveState persists the checkpoint atomically: the file is written whole to
// a temp sibling and renamed into place, never left partially written.
func (s SyncState) Save(path string) error {
	s.LastRunAt = time.Now().UTC().Format(time.RFC3339)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &internal.StateError{Path: path, Op: "save", Err: err}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return &internal.StateError{Path: path, Op: "save", Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".state-*")
	if err != nil {
		return &internal.StateError{Path: path, Op: "save", Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &internal.StateError{Path: path, Op: "save", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &internal.StateError{Path: path, Op: "save", Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &internal.StateError{Path: path, Op: "save", Err: err}
	}
	return nil
}
