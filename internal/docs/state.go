package docs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/iksnae/persona-sft/internal"
)

// FileState is the per-file progress marker: files whose (mtime, size) match
// are skipped without re-reading, and chunk hashes already in Chunks are not
// re-emitted when the file changed.
type FileState struct {
	Mtime  float64  `json:"mtime"` // seconds since epoch, fractional
	Size   int64    `json:"size"`
	Chunks []string `json:"chunks"`
}

// SyncState is the persisted document-adapter state.
type SyncState struct {
	Files     map[string]FileState `json:"files"`
	LastRunAt string               `json:"last_run_at,omitempty"`
}

// LoadState reads the state file. Missing or corrupt state means starting
// from scratch, never a fatal error.
func LoadState(path string) *SyncState {
	s := &SyncState{Files: make(map[string]FileState)}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var loaded SyncState
	if err := json.Unmarshal(data, &loaded); err != nil {
		internal.LogWarn("Ignoring corrupt state file %s: %v", path, err)
		return s
	}
	if loaded.Files == nil {
		loaded.Files = make(map[string]FileState)
	}
	return &loaded
}

// Save persists the state whole via temp-file-and-rename; a killed run can
// never leave it partially written.
func (s *SyncState) Save(path string) error {
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
